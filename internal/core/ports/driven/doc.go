// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ResourceStore: Conditional writes and reads of versioned documents
//   - PolicySource: Per-type write policies (dynamic configuration)
//   - EventBus: Post-write notification delivery
//   - RevisionFactory: Search index computation for a resource
//   - KeyDeriver: Partition key derivation
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
