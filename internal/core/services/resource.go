package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driven"
	"github.com/custodia-labs/revstore/internal/core/ports/driving"
)

// Ensure ResourceService implements the interface.
var _ driving.ResourceService = (*ResourceService)(nil)

// ResourceService reads committed resources back from the store.
type ResourceService struct {
	store  driven.ResourceStore
	policy driven.PolicySource
}

// NewResourceService creates a new resource service.
func NewResourceService(store driven.ResourceStore, policy driven.PolicySource) *ResourceService {
	return &ResourceService{store: store, policy: policy}
}

// Get returns the current revision of a resource.
func (s *ResourceService) Get(ctx context.Context, resourceType, id string) (*domain.Resource, error) {
	return s.read(ctx, domain.ResourceKey{Type: resourceType, ID: id})
}

// VRead returns a specific version of a resource.
func (s *ResourceService) VRead(ctx context.Context, resourceType, id, version string) (*domain.Resource, error) {
	if version == "" {
		return nil, fmt.Errorf("%w: version is required", domain.ErrInvalidArgument)
	}
	return s.read(ctx, domain.ResourceKey{Type: resourceType, ID: id, Version: version})
}

func (s *ResourceService) read(ctx context.Context, key domain.ResourceKey) (*domain.Resource, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if key.Type == "" || key.ID == "" {
		return nil, fmt.Errorf("%w: resource type and id are required", domain.ErrInvalidArgument)
	}
	doc, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	return doc.ToResource()
}

// History returns all revisions of a resource, newest first.
func (s *ResourceService) History(ctx context.Context, resourceType, id string) ([]*domain.Resource, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	docs, err := s.store.History(ctx, domain.ResourceKey{Type: resourceType, ID: id})
	if err != nil {
		return nil, err
	}

	resources := make([]*domain.Resource, 0, len(docs))
	for _, doc := range docs {
		r, err := doc.ToResource()
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, nil
}

// Policy returns the write policies in force for a resource type.
func (s *ResourceService) Policy(ctx context.Context, resourceType string) (*domain.ResourcePolicy, error) {
	if s.policy == nil {
		return nil, domain.ErrNotImplemented
	}

	var p domain.ResourcePolicy
	var err error
	if p.RequireETag, err = s.policy.RequireETag(ctx, resourceType); err != nil {
		return nil, err
	}
	if p.UpdateCreate, err = s.policy.CanUpdateCreate(ctx, resourceType); err != nil {
		return nil, err
	}
	if p.KeepHistory, err = s.policy.CanKeepHistory(ctx, resourceType); err != nil {
		return nil, err
	}
	return &p, nil
}
