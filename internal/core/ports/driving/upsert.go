package driving

import (
	"context"

	"github.com/custodia-labs/revstore/internal/core/domain"
)

// UpsertService saves resource revisions.
type UpsertService interface {
	// Upsert writes resource as the new current revision. etag may be nil.
	Upsert(ctx context.Context, req UpsertRequest) (*UpsertResponse, error)
}

// UpsertRequest is one save request.
type UpsertRequest struct {
	Resource *domain.Resource
	ETag     *domain.WeakETag
}

// UpsertResponse wraps the committed resource.
type UpsertResponse struct {
	Outcome domain.SaveOutcome

	// NotificationError is set when publishing failed and the publish
	// failure policy allowed the upsert to succeed anyway.
	NotificationError error
}
