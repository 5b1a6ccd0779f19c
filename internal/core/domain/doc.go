// Package domain defines the core business entities for revstore.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Resource: A parsed resource as seen by callers
//   - ResourceRevision: A plain stored revision produced by the revision factory
//   - VersionedDocument: The storage form of a revision, with identity and sort index
//   - SortIndex: Min/max values per search parameter code
//   - Event: A post-write notification
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
