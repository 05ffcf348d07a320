// Package endpoints registers the contract-checked bookstore handlers on an httpcontract.Router.
//
// The checks that call back into the store after the handler ran (the authors of a category
// listing and the book count bookkeeping of an upsert) are the slow ones; WithSlowChecks
// decides whether they are enforced or only documented.
package endpoints
