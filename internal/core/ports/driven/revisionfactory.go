package driven

import (
	"context"

	"github.com/custodia-labs/revstore/internal/core/domain"
)

// RevisionFactory turns a resource into a plain revision: serialized payload,
// request metadata, search index entries and compartment memberships.
type RevisionFactory interface {
	Create(ctx context.Context, resource *domain.Resource, deleted bool) (*domain.ResourceRevision, error)
}
