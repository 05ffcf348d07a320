// Package contract provides design-by-contract checking for endpoint handlers.
//
// A handler is decorated with pre-conditions, snapshots and post-conditions.
// The first enforced contract wraps the handler in a single composed Checker;
// every further decoration reuses that checker and adds to its ordered chains.
// Independently, every documented contract is recorded in a metadata Record,
// which schema builders read to publish the contracts as documentation.
//
// On each invocation the checker runs:
//
//	pre-conditions -> snapshot capture -> handler -> post-conditions
//
// The first false condition stops the chain and the call fails with a
// *Violation carrying the contract's status code. Errors raised by the
// handler, a predicate or a capture function are returned unchanged.
//
// Common usage pattern:
//
//	reg, err := contract.NewRegistry(contract.WithLogger(slog.Default()))
//	if err != nil {
//		// handle error
//	}
//
//	endpoint := contract.NewEndpoint("books_in_category", booksInCategory, "category")
//	handler, err := contract.Apply(endpoint,
//		reg.Require(
//			contract.CheckAsync(hasCategory, "category"),
//			contract.WithStatusCode(http.StatusNotFound),
//			contract.WithDescription("The category must exist.")),
//		reg.Ensure(contract.Check(authorsExist, "result")),
//	)
//
// Decorators listed first are the outermost ones: they are evaluated first
// and documented first.
//
// Contracts with Enforced(false) never enter the runtime chain; they are only
// recorded for documentation. Undocumented() contracts are checked but hidden
// from the metadata.
package contract
