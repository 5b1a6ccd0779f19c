package domain

import "time"

// ResourceRevision is one revision of a resource as produced by the revision
// factory, before any storage-specific fields are derived.
type ResourceRevision struct {
	ResourceID          string
	Version             string
	ResourceType        string
	Raw                 RawResource
	Request             ResourceRequest
	LastModified        time.Time
	IsDeleted           bool
	IsHistory           bool
	SearchIndices       []SearchIndexEntry
	CompartmentIndices  CompartmentIndices
	LastModifiedClaims  []Claim
	SearchParameterHash string
}
