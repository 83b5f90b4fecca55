// Package driving defines the interfaces the CLI uses to run crawls, process
// the intermediate store, and read the run ledger. These are the "driving"
// ports in hexagonal architecture terminology.
//
// Implementations of these interfaces live in internal/core/services.
package driving
