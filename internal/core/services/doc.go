// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The crawler fills the intermediate store from the hosting API, the
// processor turns that store into the final artifact, and the run recorder
// keeps the ledger of both.
package services
