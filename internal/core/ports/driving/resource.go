package driving

import (
	"context"

	"github.com/custodia-labs/revstore/internal/core/domain"
)

// ResourceService reads committed resources back.
type ResourceService interface {
	// Get returns the current revision of a resource.
	Get(ctx context.Context, resourceType, id string) (*domain.Resource, error)

	// VRead returns a specific version of a resource.
	VRead(ctx context.Context, resourceType, id, version string) (*domain.Resource, error)

	// History returns all revisions of a resource, newest first.
	History(ctx context.Context, resourceType, id string) ([]*domain.Resource, error)

	// Policy returns the write policies in force for a resource type.
	Policy(ctx context.Context, resourceType string) (*domain.ResourcePolicy, error)
}
