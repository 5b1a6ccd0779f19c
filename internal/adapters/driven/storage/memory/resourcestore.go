package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/revstore/internal/adapters/driven/storage"
	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driven"
)

// Ensure ResourceStore implements the interface.
var _ driven.ResourceStore = (*ResourceStore)(nil)

// ResourceStore is an in-memory implementation of driven.ResourceStore.
// Documents are grouped by partition key and addressed by document id,
// the same layout the document-database adapter uses.
type ResourceStore struct {
	mu         sync.RWMutex
	keys       driven.KeyDeriver
	partitions map[string]map[string]*domain.VersionedDocument
}

// NewResourceStore creates a new in-memory resource store.
func NewResourceStore(keys driven.KeyDeriver) *ResourceStore {
	return &ResourceStore{
		keys:       keys,
		partitions: make(map[string]map[string]*domain.VersionedDocument),
	}
}

// Upsert conditionally writes doc as the current revision.
func (s *ResourceStore) Upsert(
	ctx context.Context,
	doc *domain.VersionedDocument,
	etag *domain.WeakETag,
	allowCreate, keepHistory bool,
) (*domain.UpsertOutcome, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pk := s.keys.PartitionKey(doc.ResourceType, doc.ResourceID)
	partition := s.partitions[pk]
	if partition == nil {
		partition = make(map[string]*domain.VersionedDocument)
		s.partitions[pk] = partition
	}

	plan, err := storage.PlanUpsert(partition[doc.ResourceID], doc, etag, allowCreate, keepHistory)
	if err != nil {
		return nil, err
	}

	if plan.Archive != nil {
		partition[plan.Archive.ID()] = plan.Archive
	}
	partition[plan.Current.ID()] = plan.Current

	return &domain.UpsertOutcome{Document: plan.Current.Clone(), Kind: plan.Kind}, nil
}

// Get returns the current revision, or the revision at key.Version.
func (s *ResourceStore) Get(_ context.Context, key domain.ResourceKey) (*domain.VersionedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partition := s.partitions[s.keys.PartitionKey(key.Type, key.ID)]
	current, ok := partition[key.ID]
	if ok && (current.IsHistory || current.ResourceID != key.ID || current.ResourceType != key.Type) {
		ok = false
	}

	if key.Version == "" {
		if !ok {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
		}
		return current.Clone(), nil
	}

	if ok && current.EffectiveVersion() == key.Version {
		return current.Clone(), nil
	}
	if h, found := partition[key.ID+"_"+key.Version]; found && h.IsHistory && h.ResourceID == key.ID && h.ResourceType == key.Type {
		return h.Clone(), nil
	}
	return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
}

// History returns every stored revision of a resource, newest first.
func (s *ResourceStore) History(_ context.Context, key domain.ResourceKey) ([]*domain.VersionedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []*domain.VersionedDocument
	for id, doc := range s.partitions[s.keys.PartitionKey(key.Type, key.ID)] {
		if doc.ResourceID != key.ID || doc.ResourceType != key.Type {
			continue
		}
		if id != key.ID && !strings.HasPrefix(id, key.ID+"_") {
			continue
		}
		docs = append(docs, doc.Clone())
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}

	storage.SortNewestFirst(docs)
	return docs, nil
}

// Len returns the number of stored documents, current and history.
func (s *ResourceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, partition := range s.partitions {
		n += len(partition)
	}
	return n
}
