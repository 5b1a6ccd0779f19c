package domain

import (
	"fmt"
	"strconv"
	"time"
)

// VersionedDocument is one stored revision of a logical resource in the form
// the storage backends persist it.
//
// Current and history revisions of the same resource share a partition and
// differ in ID: the current revision is addressed by the resource id alone,
// a history revision by "<id>_<version>".
type VersionedDocument struct {
	ResourceID   string
	ResourceType string

	// Version is the logical version. It may be empty on the current
	// revision, in which case the concurrency token stands in for it.
	Version string

	// ETag is the concurrency token assigned by the backend on write.
	ETag string

	Raw                 RawResource
	Request             ResourceRequest
	LastModified        time.Time
	IsDeleted           bool
	IsHistory           bool
	CompartmentIndices  CompartmentIndices
	LastModifiedClaims  []Claim
	SearchParameterHash string

	searchIndices []SearchIndexEntry
	sortIndex     SortIndex
}

// NewDocumentFromRevision builds a document from a revision. The history flag
// overrides the revision's own.
func NewDocumentFromRevision(rev *ResourceRevision, history bool) (*VersionedDocument, error) {
	if rev == nil {
		return nil, fmt.Errorf("%w: revision is nil", ErrInvalidArgument)
	}
	return NewVersionedDocument(DocumentParams{
		ResourceID:          rev.ResourceID,
		Version:             rev.Version,
		ResourceType:        rev.ResourceType,
		Raw:                 rev.Raw,
		Request:             rev.Request,
		LastModified:        rev.LastModified,
		IsDeleted:           rev.IsDeleted,
		IsHistory:           history,
		SearchIndices:       rev.SearchIndices,
		CompartmentIndices:  rev.CompartmentIndices,
		LastModifiedClaims:  rev.LastModifiedClaims,
		SearchParameterHash: rev.SearchParameterHash,
	}), nil
}

// DocumentParams holds explicit field values for NewVersionedDocument.
type DocumentParams struct {
	ResourceID          string
	Version             string
	ETag                string
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

// NewVersionedDocument builds a document from explicit values and derives
// its sort index.
func NewVersionedDocument(p DocumentParams) *VersionedDocument {
	d := &VersionedDocument{
		ResourceID:          p.ResourceID,
		ResourceType:        p.ResourceType,
		Version:             p.Version,
		ETag:                p.ETag,
		Raw:                 p.Raw,
		Request:             p.Request,
		LastModified:        p.LastModified,
		IsDeleted:           p.IsDeleted,
		IsHistory:           p.IsHistory,
		CompartmentIndices:  p.CompartmentIndices,
		LastModifiedClaims:  p.LastModifiedClaims,
		SearchParameterHash: p.SearchParameterHash,
	}
	d.ReplaceIndices(p.SearchIndices)
	return d
}

// ID returns the document id within its partition.
func (d *VersionedDocument) ID() string {
	if d.IsHistory {
		return d.ResourceID + "_" + d.EffectiveVersion()
	}
	return d.ResourceID
}

// EffectiveVersion returns Version, or the unquoted ETag when Version is
// empty and an ETag has been assigned.
func (d *VersionedDocument) EffectiveVersion() string {
	return ResolveVersion(d.Version, d.ETag)
}

// ResolveVersion applies the version resolution rule to raw field values.
func ResolveVersion(version, etag string) string {
	if version == "" && etag != "" {
		return UnquoteETag(etag)
	}
	return version
}

// Key returns the resource key of the document at its effective version.
func (d *VersionedDocument) Key() ResourceKey {
	return ResourceKey{Type: d.ResourceType, ID: d.ResourceID, Version: d.EffectiveVersion()}
}

// SearchIndices returns the indexed entries.
func (d *VersionedDocument) SearchIndices() []SearchIndexEntry {
	return d.searchIndices
}

// SortIndex returns the sort index derived from the current entries.
func (d *VersionedDocument) SortIndex() SortIndex {
	return d.sortIndex
}

// ReplaceIndices swaps the search index entries and rebuilds the sort index
// from scratch.
func (d *VersionedDocument) ReplaceIndices(entries []SearchIndexEntry) {
	d.searchIndices = entries
	d.sortIndex = BuildSortIndex(entries)
}

// Clone returns a copy whose slices and maps are not shared with d.
func (d *VersionedDocument) Clone() *VersionedDocument {
	c := *d
	if d.searchIndices != nil {
		c.searchIndices = append([]SearchIndexEntry(nil), d.searchIndices...)
	}
	c.sortIndex = BuildSortIndex(c.searchIndices)
	if d.LastModifiedClaims != nil {
		c.LastModifiedClaims = append([]Claim(nil), d.LastModifiedClaims...)
	}
	if d.CompartmentIndices != nil {
		c.CompartmentIndices = make(CompartmentIndices, len(d.CompartmentIndices))
		for k, v := range d.CompartmentIndices {
			c.CompartmentIndices[k] = append([]string(nil), v...)
		}
	}
	return &c
}

// Archive returns a history copy of d pinned at its effective version.
func (d *VersionedDocument) Archive() *VersionedDocument {
	h := d.Clone()
	h.Version = d.EffectiveVersion()
	h.IsHistory = true
	return h
}

// NextVersion returns the version that follows the effective version.
// Versions assigned by the backends are decimal counters.
func (d *VersionedDocument) NextVersion() (string, error) {
	n, err := strconv.ParseInt(d.EffectiveVersion(), 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: version %q of %s is not numeric", ErrInvalidArgument, d.EffectiveVersion(), d.ResourceID)
	}
	return strconv.FormatInt(n+1, 10), nil
}

// ToResource decodes the payload and stamps it with the document's
// effective version and modification time.
func (d *VersionedDocument) ToResource() (*Resource, error) {
	r, err := ParseResource([]byte(d.Raw.Data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s/%s: %w", d.ResourceType, d.ResourceID, err)
	}
	r.VersionID = d.EffectiveVersion()
	r.LastUpdated = d.LastModified
	return r, nil
}
