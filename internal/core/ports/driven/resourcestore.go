package driven

import (
	"context"

	"github.com/custodia-labs/revstore/internal/core/domain"
)

// ResourceStore persists versioned documents. Current and history revisions
// of a resource live side by side in the resource's partition.
type ResourceStore interface {
	// Upsert conditionally writes doc as the current revision.
	//
	// When the resource is absent, a supplied etag or allowCreate=false fails
	// with domain.ErrNotFound. When present, an etag that does not match the
	// stored version fails with domain.ErrPreconditionFailed. With keepHistory
	// the superseded revision is archived as a history document first.
	// The returned outcome carries a copy of doc with the assigned token.
	Upsert(ctx context.Context, doc *domain.VersionedDocument, etag *domain.WeakETag, allowCreate, keepHistory bool) (*domain.UpsertOutcome, error)

	// Get returns the current revision, or the revision at key.Version when set.
	Get(ctx context.Context, key domain.ResourceKey) (*domain.VersionedDocument, error)

	// History returns every stored revision, newest first.
	History(ctx context.Context, key domain.ResourceKey) ([]*domain.VersionedDocument, error)
}
