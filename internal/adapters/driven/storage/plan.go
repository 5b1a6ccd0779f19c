// Package storage holds the conditional-write rules shared by the storage
// adapters in its subpackages. Each adapter loads the current revision,
// asks PlanUpsert what to write, and applies the plan atomically.
package storage

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/custodia-labs/revstore/internal/core/domain"
)

// FirstVersion is the version assigned to a newly created resource.
const FirstVersion = "1"

// WritePlan is the set of document writes that commit one upsert.
type WritePlan struct {
	// Current is the new current revision with its token assigned.
	Current *domain.VersionedDocument

	// Archive is the superseded revision to keep as history, if any.
	Archive *domain.VersionedDocument

	// PreviousETag is the stored token of the revision being replaced.
	// Empty when the plan creates the resource.
	PreviousETag string

	Kind domain.OutcomeKind
}

// PlanUpsert decides the outcome of writing doc over existing, which is nil
// when the resource has no current revision. An existing document that is
// not the current revision of the same resource holds doc's id for someone
// else and fails the write.
func PlanUpsert(existing, doc *domain.VersionedDocument, etag *domain.WeakETag, allowCreate, keepHistory bool) (*WritePlan, error) {
	key := domain.ResourceKey{Type: doc.ResourceType, ID: doc.ResourceID}
	if err := domain.ValidateResourceID(doc.ResourceID); err != nil {
		return nil, err
	}
	if existing != nil && !isCurrentOf(existing, key) {
		return nil, fmt.Errorf("%w: document id %s is held by %s", domain.ErrPreconditionFailed, doc.ID(), existing.ID())
	}

	if existing == nil {
		if etag != nil {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
		}
		if !allowCreate {
			return nil, fmt.Errorf("%s does not exist and update-create is disabled: %w", key, domain.ErrNotFound)
		}
		return &WritePlan{Current: stamp(doc, FirstVersion), Kind: domain.OutcomeCreated}, nil
	}

	current := existing.EffectiveVersion()
	if etag != nil && etag.VersionID != current {
		return nil, fmt.Errorf("%w: %s is at version %s, not %s", domain.ErrPreconditionFailed, key, current, etag.VersionID)
	}

	next, err := existing.NextVersion()
	if err != nil {
		return nil, err
	}

	plan := &WritePlan{
		Current:      stamp(doc, next),
		PreviousETag: existing.ETag,
		Kind:         domain.OutcomeUpdated,
	}
	if existing.IsDeleted {
		plan.Kind = domain.OutcomeCreated
	}
	if keepHistory {
		plan.Archive = existing.Archive()
	}
	return plan, nil
}

func isCurrentOf(doc *domain.VersionedDocument, key domain.ResourceKey) bool {
	return !doc.IsHistory && doc.ResourceID == key.ID && doc.ResourceType == key.Type
}

// stamp copies doc as a current revision carrying the token for version.
// The logical version stays empty so the token is authoritative.
func stamp(doc *domain.VersionedDocument, version string) *domain.VersionedDocument {
	c := doc.Clone()
	c.Version = ""
	c.ETag = domain.QuoteETag(version)
	c.IsHistory = false
	return c
}

// SortNewestFirst orders revisions by descending numeric version.
// Non-numeric versions sort after numeric ones, lexically.
func SortNewestFirst(docs []*domain.VersionedDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		vi, errI := strconv.ParseInt(docs[i].EffectiveVersion(), 10, 64)
		vj, errJ := strconv.ParseInt(docs[j].EffectiveVersion(), 10, 64)
		switch {
		case errI == nil && errJ == nil:
			return vi > vj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return docs[i].EffectiveVersion() > docs[j].EffectiveVersion()
		}
	})
}
