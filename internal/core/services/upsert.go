package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driven"
	"github.com/custodia-labs/revstore/internal/core/ports/driving"
	"github.com/custodia-labs/revstore/internal/logger"
)

// Ensure UpsertService implements the interface.
var _ driving.UpsertService = (*UpsertService)(nil)

// UpsertService checks write policies, builds the storage document, hands it
// to the store and publishes a notification for the committed revision.
type UpsertService struct {
	store   driven.ResourceStore
	policy  driven.PolicySource
	factory driven.RevisionFactory
	bus     driven.EventBus

	onPublishFailure atomic.Int32
	newID            func() string
	now              func() time.Time
}

// NewUpsertService creates a new upsert service.
// Publish failures fail the call until SetPublishFailurePolicy says otherwise.
func NewUpsertService(
	store driven.ResourceStore,
	policy driven.PolicySource,
	factory driven.RevisionFactory,
	bus driven.EventBus,
) *UpsertService {
	return &UpsertService{
		store:   store,
		policy:  policy,
		factory: factory,
		bus:     bus,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// SetPublishFailurePolicy sets what happens when the write committed but
// publishing the notification failed. It is safe to call while upserts run.
func (s *UpsertService) SetPublishFailurePolicy(p domain.PublishFailurePolicy) {
	s.onPublishFailure.Store(int32(p))
}

// Upsert saves a resource revision.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *UpsertService) Upsert(ctx context.Context, req driving.UpsertRequest) (*driving.UpsertResponse, error) {
	if req.Resource == nil {
		return nil, fmt.Errorf("%w: resource is nil", domain.ErrInvalidArgument)
	}
	if s.store == nil || s.policy == nil || s.factory == nil || s.bus == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resource := req.Resource.Clone()
	if resource.ID == "" {
		resource.ID = s.newID()
		logger.Debug("Assigned id %s to new %s", resource.ID, resource.Type)
	}
	if err := domain.ValidateResourceID(resource.ID); err != nil {
		return nil, err
	}

	// 1. Policy checks
	requireETag, err := s.policy.RequireETag(ctx, resource.Type)
	if err != nil {
		return nil, err
	}
	if requireETag && req.ETag == nil {
		return nil, fmt.Errorf("%w: an If-Match etag is required to update %s resources",
			domain.ErrPreconditionRequired, resource.Type)
	}

	allowCreate, err := s.policy.CanUpdateCreate(ctx, resource.Type)
	if err != nil {
		return nil, err
	}
	keepHistory, err := s.policy.CanKeepHistory(ctx, resource.Type)
	if err != nil {
		return nil, err
	}
	logger.Debug("Policy for %s: require_etag=%t update_create=%t keep_history=%t",
		resource.Type, requireETag, allowCreate, keepHistory)

	// 2. Build the storage document
	rev, err := s.factory.Create(ctx, resource, false)
	if err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}
	doc, err := domain.NewDocumentFromRevision(rev, false)
	if err != nil {
		return nil, err
	}
	doc.IsDeleted = false

	// 3. Conditional write
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := s.store.Upsert(ctx, doc, req.ETag, allowCreate, keepHistory)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", resource.Key(), err)
	}

	resource.VersionID = result.Document.EffectiveVersion()
	resource.LastUpdated = result.Document.LastModified
	logger.Info("%s %s at version %s", result.Kind, resource.Key(), resource.VersionID)

	resp := &driving.UpsertResponse{
		Outcome: domain.SaveOutcome{Resource: resource, Kind: result.Kind},
	}

	// 4. Notify. The write is durable from here on.
	event := domain.UpsertEventFor(resource.Clone(), s.now())
	if err := s.bus.Publish(ctx, event); err != nil {
		if domain.PublishFailurePolicy(s.onPublishFailure.Load()) == domain.PublishFailureWarn {
			logger.Warn("Publishing %s for %s failed: %v", event.Kind, resource.Key(), err)
			resp.NotificationError = err
			return resp, nil
		}
		return nil, err
	}

	return resp, nil
}
