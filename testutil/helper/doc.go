// Package helper provides spies for the observability interfaces of the contract package
// and small builders shared by the tests of the contract packages and the bookstore example.
package helper
