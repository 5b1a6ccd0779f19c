package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/revstore/internal/adapters/driven/keys"
	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driven"
)

// setupTestStore connects to the server named by REVSTORE_MONGO_URI using a
// fresh collection. Tests are skipped when the variable is unset.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	return setupTestStoreWithKeys(t, keys.TypeIDDeriver{})
}

func setupTestStoreWithKeys(t *testing.T, deriver driven.KeyDeriver) *Store {
	t.Helper()

	uri := os.Getenv("REVSTORE_MONGO_URI")
	if uri == "" {
		t.Skip("REVSTORE_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := Connect(ctx, Config{
		URI:        uri,
		Database:   "revstore_test",
		Collection: "resources_" + uuid.NewString(),
		Compress:   true,
	}, deriver)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		assert.NoError(t, store.coll.Drop(ctx))
		assert.NoError(t, store.Close(ctx))
	})
	return store
}

func TestConnect_EmptyURI(t *testing.T) {
	_, err := Connect(context.Background(), Config{}, keys.TypeIDDeriver{})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestStore_CreateUpdateHistory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := sampleDoc()
	doc.Version, doc.ETag, doc.IsHistory = "", "", false

	out, err := store.Upsert(ctx, doc, nil, true, true)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCreated, out.Kind)
	assert.Equal(t, "1", out.Document.EffectiveVersion())

	out, err = store.Upsert(ctx, doc, domain.WeakETagFromVersion("1"), true, true)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, out.Kind)
	assert.Equal(t, "2", out.Document.EffectiveVersion())

	old, err := store.Get(ctx, domain.ResourceKey{Type: "Patient", ID: "R1", Version: "1"})
	require.NoError(t, err)
	assert.True(t, old.IsHistory)

	history, err := store.History(ctx, domain.ResourceKey{Type: "Patient", ID: "R1"})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2", history[0].EffectiveVersion())
}

func TestStore_StaleETagLeavesNoArchive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := sampleDoc()
	doc.Version, doc.ETag, doc.IsHistory = "", "", false

	_, err := store.Upsert(ctx, doc, nil, true, true)
	require.NoError(t, err)

	_, err = store.Upsert(ctx, doc, domain.WeakETagFromVersion("4"), true, true)
	assert.True(t, errors.Is(err, domain.ErrPreconditionFailed))

	history, err := store.History(ctx, domain.ResourceKey{Type: "Patient", ID: "R1"})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStore_CreateDisallowed(t *testing.T) {
	store := setupTestStore(t)

	doc := sampleDoc()
	doc.Version, doc.ETag, doc.IsHistory = "", "", false

	_, err := store.Upsert(context.Background(), doc, nil, false, true)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_GetMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get(context.Background(), domain.ResourceKey{Type: "Patient", ID: "nope"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCurrentFilter_ExcludesHistoryRecords(t *testing.T) {
	f := currentFilter("Patient_b00", "Patient", "a_1")

	assert.Equal(t, recordID("Patient_b00", "a_1"), f["_id"])
	assert.Equal(t, "a_1", f["resourceId"])
	assert.Equal(t, "Patient", f["resourceTypeName"])
	assert.Equal(t, false, f["isHistory"])
}

func TestStore_SharedBucketHistoryIDIsNotACurrentRevision(t *testing.T) {
	store := setupTestStoreWithKeys(t, keys.NewBucketDeriver(1))
	ctx := context.Background()

	doc := sampleDoc()
	doc.ResourceID, doc.Version, doc.ETag, doc.IsHistory = "a", "", "", false
	for i := 0; i < 2; i++ {
		_, err := store.Upsert(ctx, doc, nil, true, true)
		require.NoError(t, err)
	}

	// "a_1" is the id of a's archived revision.
	intruder := doc.Clone()
	intruder.ResourceID = "a_1"
	_, err := store.Upsert(ctx, intruder, nil, true, true)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = store.Get(ctx, domain.ResourceKey{Type: "Patient", ID: "a_1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	history, err := store.History(ctx, domain.ResourceKey{Type: "Patient", ID: "a"})
	require.NoError(t, err)
	assert.Len(t, history, 2)

	old, err := store.Get(ctx, domain.ResourceKey{Type: "Patient", ID: "a", Version: "1"})
	require.NoError(t, err)
	assert.True(t, old.IsHistory)
}
