// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services hold no state across calls and take no locks: concurrent writes
// to one resource are serialised by the store's conditional write.
package services
