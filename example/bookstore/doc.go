// Package bookstore is the example of contract-checked HTTP endpoints: a small bookstore
// whose handlers are guarded by pre-conditions, snapshots and post-conditions that are
// enforced at request time and documented in the OpenAPI document under x-contracts.
//
// The subpackages follow a core/shell split:
//   - core holds the Book type,
//   - store holds the in-memory and the PostgreSQL store,
//   - endpoints registers the decorated handlers on an httpcontract.Router,
//   - config loads the server configuration and builds stores and telemetry providers,
//   - cmd/server assembles and serves everything.
package bookstore
