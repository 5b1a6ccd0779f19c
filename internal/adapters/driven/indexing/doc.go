// Package indexing provides a declarative implementation of driven.RevisionFactory.
//
// Search parameters are described by definitions loaded from YAML. Each
// definition names the resource types it applies to and a dotted path into
// the resource's JSON body; the factory extracts the values at that path and
// records them as search index entries. Values of sortable parameters are
// tagged with the range role they play, so the document's sort index can be
// derived from the entries alone.
package indexing
