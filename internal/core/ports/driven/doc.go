// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - FetchClient: Searches repositories and retrieves trees and blobs
//   - TokenProvider: Supplies the API credential, if any
//   - RawRecordWriter / RawRecordReader: The intermediate line-delimited store
//   - RecordStage / RecordPipeline: Per-record processing stages
//   - RecordSink: The final columnar artifact
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - RunStore: The run ledger. Without it, run summaries are only logged.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or postprocessor package
package driven
