package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/revstore/internal/adapters/driven/events"
	"github.com/custodia-labs/revstore/internal/adapters/driven/indexing"
	"github.com/custodia-labs/revstore/internal/adapters/driven/keys"
	"github.com/custodia-labs/revstore/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driving"
)

// --- Mock implementations ---

// mockPolicy implements driven.PolicySource for testing.
type mockPolicy struct {
	policy domain.ResourcePolicy
	err    error
	calls  int
}

func (m *mockPolicy) RequireETag(context.Context, string) (bool, error) {
	m.calls++
	return m.policy.RequireETag, m.err
}

func (m *mockPolicy) CanUpdateCreate(context.Context, string) (bool, error) {
	m.calls++
	return m.policy.UpdateCreate, m.err
}

func (m *mockPolicy) CanKeepHistory(context.Context, string) (bool, error) {
	m.calls++
	return m.policy.KeepHistory, m.err
}

// mockFactory implements driven.RevisionFactory for testing.
type mockFactory struct {
	entries []domain.SearchIndexEntry
	err     error
	calls   int
}

func (m *mockFactory) Create(_ context.Context, r *domain.Resource, deleted bool) (*domain.ResourceRevision, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	data, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return &domain.ResourceRevision{
		ResourceID:    r.ID,
		Version:       "ignored",
		ResourceType:  r.Type,
		Raw:           domain.RawResource{Data: string(data), Format: domain.FormatJSON},
		LastModified:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		IsDeleted:     deleted,
		IsHistory:     true,
		SearchIndices: m.entries,
	}, nil
}

// mockStore implements driven.ResourceStore for testing.
type mockStore struct {
	outcome *domain.UpsertOutcome
	err     error

	calls       int
	gotDoc      *domain.VersionedDocument
	gotETag     *domain.WeakETag
	gotCreate   bool
	gotHistory  bool
	getDoc      *domain.VersionedDocument
	historyDocs []*domain.VersionedDocument
}

func (m *mockStore) Upsert(
	_ context.Context,
	doc *domain.VersionedDocument,
	etag *domain.WeakETag,
	allowCreate, keepHistory bool,
) (*domain.UpsertOutcome, error) {
	m.calls++
	m.gotDoc, m.gotETag, m.gotCreate, m.gotHistory = doc, etag, allowCreate, keepHistory
	if m.err != nil {
		return nil, m.err
	}
	if m.outcome != nil {
		return m.outcome, nil
	}
	stored := doc.Clone()
	stored.Version = ""
	stored.ETag = `"1"`
	return &domain.UpsertOutcome{Document: stored, Kind: domain.OutcomeCreated}, nil
}

func (m *mockStore) Get(_ context.Context, key domain.ResourceKey) (*domain.VersionedDocument, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.getDoc == nil {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	return m.getDoc, nil
}

func (m *mockStore) History(context.Context, domain.ResourceKey) ([]*domain.VersionedDocument, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.historyDocs, nil
}

// mockBus implements driven.EventBus for testing.
type mockBus struct {
	events []domain.Event
	err    error
}

func (m *mockBus) Publish(_ context.Context, e domain.Event) error {
	m.events = append(m.events, e)
	return m.err
}

func newMockedService(policy domain.ResourcePolicy) (*UpsertService, *mockStore, *mockPolicy, *mockFactory, *mockBus) {
	store := &mockStore{}
	pol := &mockPolicy{policy: policy}
	factory := &mockFactory{}
	bus := &mockBus{}
	svc := NewUpsertService(store, pol, factory, bus)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 1, 0, time.UTC) }
	return svc, store, pol, factory, bus
}

func mustParse(t *testing.T, s string) *domain.Resource {
	t.Helper()
	r, err := domain.ParseResource([]byte(s))
	require.NoError(t, err)
	return r
}

var defaultPolicy = domain.ResourcePolicy{UpdateCreate: true, KeepHistory: true}

// --- Orchestration tests ---

func TestUpsertService_CreatesAndPublishes(t *testing.T) {
	svc, store, _, _, bus := newMockedService(defaultPolicy)

	resp, err := svc.Upsert(context.Background(), driving.UpsertRequest{
		Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeCreated, resp.Outcome.Kind)
	assert.Equal(t, "1", resp.Outcome.Resource.VersionID)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), resp.Outcome.Resource.LastUpdated)
	assert.Nil(t, resp.NotificationError)

	assert.Equal(t, 1, store.calls)
	assert.Nil(t, store.gotETag)
	assert.True(t, store.gotCreate)
	assert.True(t, store.gotHistory)
	assert.False(t, store.gotDoc.IsHistory, "document must be built as current")
	assert.False(t, store.gotDoc.IsDeleted)
	assert.Equal(t, "R1", store.gotDoc.ID())

	require.Len(t, bus.events, 1)
	assert.Equal(t, domain.EventResourceChanged, bus.events[0].Kind)
	assert.Equal(t, "1", bus.events[0].Resource.VersionID)
}

func TestUpsertService_SubscriptionPublishesSubscriptionChanged(t *testing.T) {
	svc, _, _, _, bus := newMockedService(defaultPolicy)

	_, err := svc.Upsert(context.Background(), driving.UpsertRequest{
		Resource: mustParse(t, `{"resourceType":"Subscription","id":"S1","status":"active"}`),
	})
	require.NoError(t, err)

	require.Len(t, bus.events, 1)
	assert.Equal(t, domain.EventSubscriptionChanged, bus.events[0].Kind)
}

func TestUpsertService_PassesPolicyAndETagToStore(t *testing.T) {
	svc, store, _, _, _ := newMockedService(domain.ResourcePolicy{RequireETag: true})

	etag := domain.WeakETagFromVersion("4")
	_, err := svc.Upsert(context.Background(), driving.UpsertRequest{
		Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`),
		ETag:     etag,
	})
	require.NoError(t, err)

	assert.Same(t, etag, store.gotETag)
	assert.False(t, store.gotCreate)
	assert.False(t, store.gotHistory)
}

func TestUpsertService_PreconditionRequired(t *testing.T) {
	svc, store, _, factory, bus := newMockedService(domain.ResourcePolicy{RequireETag: true, UpdateCreate: true})

	_, err := svc.Upsert(context.Background(), driving.UpsertRequest{
		Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`),
	})

	assert.True(t, errors.Is(err, domain.ErrPreconditionRequired))
	assert.Zero(t, factory.calls)
	assert.Zero(t, store.calls)
	assert.Empty(t, bus.events)
}

func TestUpsertService_AssignsIDWhenMissing(t *testing.T) {
	svc, store, _, _, _ := newMockedService(defaultPolicy)
	svc.newID = func() string { return "generated" }

	resp, err := svc.Upsert(context.Background(), driving.UpsertRequest{
		Resource: mustParse(t, `{"resourceType":"Patient"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "generated", resp.Outcome.Resource.ID)
	assert.Equal(t, "generated", store.gotDoc.ResourceID)
}

func TestUpsertService_RejectsInvalidID(t *testing.T) {
	svc, store, pol, _, bus := newMockedService(defaultPolicy)

	_, err := svc.Upsert(context.Background(), driving.UpsertRequest{
		Resource: &domain.Resource{Type: "Patient", ID: "a_1"},
	})

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Zero(t, store.calls)
	assert.Zero(t, pol.calls)
	assert.Empty(t, bus.events)
}

func TestUpsertService_DoesNotMutateRequest(t *testing.T) {
	svc, _, _, _, _ := newMockedService(defaultPolicy)
	r := mustParse(t, `{"resourceType":"Patient"}`)

	_, err := svc.Upsert(context.Background(), driving.UpsertRequest{Resource: r})
	require.NoError(t, err)

	assert.Empty(t, r.ID)
	assert.Empty(t, r.VersionID)
}

func TestUpsertService_Errors(t *testing.T) {
	policyErr := errors.New("policy unavailable")
	factoryErr := errors.New("bad payload")

	tests := []struct {
		name      string
		setup     func(*mockStore, *mockPolicy, *mockFactory)
		wantIs    error
		wantStore int
	}{
		{
			name:   "policy error returned unchanged",
			setup:  func(_ *mockStore, p *mockPolicy, _ *mockFactory) { p.err = policyErr },
			wantIs: policyErr,
		},
		{
			name:   "factory error wrapped",
			setup:  func(_ *mockStore, _ *mockPolicy, f *mockFactory) { f.err = factoryErr },
			wantIs: factoryErr,
		},
		{
			name:      "stale etag",
			setup:     func(s *mockStore, _ *mockPolicy, _ *mockFactory) { s.err = domain.ErrPreconditionFailed },
			wantIs:    domain.ErrPreconditionFailed,
			wantStore: 1,
		},
		{
			name:      "create not allowed",
			setup:     func(s *mockStore, _ *mockPolicy, _ *mockFactory) { s.err = domain.ErrNotFound },
			wantIs:    domain.ErrNotFound,
			wantStore: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, pol, factory, bus := newMockedService(defaultPolicy)
			tt.setup(store, pol, factory)

			resp, err := svc.Upsert(context.Background(), driving.UpsertRequest{
				Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`),
			})

			assert.Nil(t, resp)
			assert.True(t, errors.Is(err, tt.wantIs), "got %v", err)
			assert.Equal(t, tt.wantStore, store.calls)
			assert.Empty(t, bus.events)
		})
	}
}

func TestUpsertService_NilResource(t *testing.T) {
	svc, _, _, _, _ := newMockedService(defaultPolicy)

	_, err := svc.Upsert(context.Background(), driving.UpsertRequest{})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestUpsertService_MissingCollaborators(t *testing.T) {
	svc := NewUpsertService(nil, nil, nil, nil)

	_, err := svc.Upsert(context.Background(), driving.UpsertRequest{
		Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`),
	})
	assert.True(t, errors.Is(err, domain.ErrNotImplemented))
}

func TestUpsertService_CancelledBeforeWrite(t *testing.T) {
	svc, store, _, _, bus := newMockedService(defaultPolicy)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Upsert(ctx, driving.UpsertRequest{
		Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`),
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.calls)
	assert.Empty(t, bus.events)
}

func TestUpsertService_PublishFailurePolicy(t *testing.T) {
	busErr := errors.New("bus down")

	t.Run("fail propagates", func(t *testing.T) {
		svc, store, _, _, bus := newMockedService(defaultPolicy)
		bus.err = busErr

		resp, err := svc.Upsert(context.Background(), driving.UpsertRequest{
			Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`),
		})

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, busErr)
		assert.Equal(t, 1, store.calls, "write stays committed")
	})

	t.Run("warn returns committed response", func(t *testing.T) {
		svc, _, _, _, bus := newMockedService(defaultPolicy)
		svc.SetPublishFailurePolicy(domain.PublishFailureWarn)
		bus.err = busErr

		resp, err := svc.Upsert(context.Background(), driving.UpsertRequest{
			Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`),
		})

		require.NoError(t, err)
		assert.ErrorIs(t, resp.NotificationError, busErr)
		assert.Equal(t, "1", resp.Outcome.Resource.VersionID)
	})
}

// --- End-to-end tests over the in-process adapters ---

type harness struct {
	svc       *UpsertService
	reader    *ResourceService
	store     *memory.ResourceStore
	config    *memory.ConfigStore
	published []domain.Event
}

func newHarness(t *testing.T, seed map[string]any) *harness {
	t.Helper()

	defs, err := indexing.DefaultDefinitions()
	require.NoError(t, err)
	factory, err := indexing.NewFactory(defs)
	require.NoError(t, err)

	h := &harness{
		store:  memory.NewResourceStore(keys.TypeIDDeriver{}),
		config: memory.NewConfigStore(seed),
	}
	bus := events.NewBus()
	bus.SubscribeAll(func(_ context.Context, e domain.Event) error {
		h.published = append(h.published, e)
		return nil
	})

	policy := configPolicy{h.config}
	h.svc = NewUpsertService(h.store, policy, factory, bus)
	h.reader = NewResourceService(h.store, policy)
	return h
}

// configPolicy reads policy keys straight from a config store.
type configPolicy struct{ config *memory.ConfigStore }

func (p configPolicy) get(key string, def bool) bool {
	if v, ok := p.config.Get("policy." + key); ok {
		return v.(bool)
	}
	return def
}

func (p configPolicy) RequireETag(context.Context, string) (bool, error) {
	return p.get("require_etag", false), nil
}

func (p configPolicy) CanUpdateCreate(context.Context, string) (bool, error) {
	return p.get("update_create", true), nil
}

func (p configPolicy) CanKeepHistory(context.Context, string) (bool, error) {
	return p.get("keep_history", true), nil
}

func TestUpsertEndToEnd_CreateThenUpdate(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	resp, err := h.svc.Upsert(ctx, driving.UpsertRequest{
		Resource: mustParse(t, `{"resourceType":"Patient","id":"R1","name":[{"family":"Smith"}],"birthDate":"1980-01-01"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCreated, resp.Outcome.Kind)
	assert.Equal(t, "1", resp.Outcome.Resource.VersionID)

	doc, err := h.store.Get(ctx, domain.ResourceKey{Type: "Patient", ID: "R1"})
	require.NoError(t, err)
	assert.Equal(t, "R1", doc.ID())
	assert.Equal(t, "1980-01-01", doc.SortIndex()["birthdate"].Low.Value)
	assert.Equal(t, "1980-01-01", doc.SortIndex()["birthdate"].High.Value)

	resp, err = h.svc.Upsert(ctx, driving.UpsertRequest{
		Resource: mustParse(t, `{"resourceType":"Patient","id":"R1","name":[{"family":"Jones"}]}`),
		ETag:     domain.WeakETagFromVersion("1"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, resp.Outcome.Kind)
	assert.Equal(t, "2", resp.Outcome.Resource.VersionID)

	history, err := h.reader.History(ctx, "Patient", "R1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2", history[0].VersionID)
	assert.Equal(t, "1", history[1].VersionID)

	old, err := h.reader.VRead(ctx, "Patient", "R1", "1")
	require.NoError(t, err)
	family := old.Body()["name"].([]any)[0].(map[string]any)["family"]
	assert.Equal(t, "Smith", family)

	require.Len(t, h.published, 2)
	for _, e := range h.published {
		assert.Equal(t, domain.EventResourceChanged, e.Kind)
	}
}

func TestUpsertEndToEnd_StaleETag(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.Upsert(ctx, driving.UpsertRequest{Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`)})
	require.NoError(t, err)

	_, err = h.svc.Upsert(ctx, driving.UpsertRequest{
		Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`),
		ETag:     domain.WeakETagFromVersion("9"),
	})
	assert.True(t, errors.Is(err, domain.ErrPreconditionFailed))
	assert.Len(t, h.published, 1)
}

func TestUpsertEndToEnd_PolicyChangesApplyImmediately(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	req := driving.UpsertRequest{Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`)}

	_, err := h.svc.Upsert(ctx, req)
	require.NoError(t, err)

	require.NoError(t, h.config.Set("policy.require_etag", true))
	_, err = h.svc.Upsert(ctx, req)
	assert.True(t, errors.Is(err, domain.ErrPreconditionRequired))

	require.NoError(t, h.config.Set("policy.require_etag", false))
	require.NoError(t, h.config.Set("policy.keep_history", false))
	_, err = h.svc.Upsert(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, h.store.Len())
}

func TestUpsertEndToEnd_CreateDisabled(t *testing.T) {
	h := newHarness(t, map[string]any{"policy.update_create": false})

	_, err := h.svc.Upsert(context.Background(), driving.UpsertRequest{
		Resource: mustParse(t, `{"resourceType":"Patient","id":"R1"}`),
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Zero(t, h.store.Len())
	assert.Empty(t, h.published)
}
