// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TokenProvider: Acquires and caches SharePoint access tokens
//   - ListSource: Fetches list items from the remote source
//   - TableSink: Provisions and writes to the destination table
//   - ConfigStore: Application configuration persistence
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
