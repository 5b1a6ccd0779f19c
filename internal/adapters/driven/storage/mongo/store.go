package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/custodia-labs/revstore/internal/adapters/driven/storage"
	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driven"
	"github.com/custodia-labs/revstore/internal/logger"
)

const (
	// DefaultDatabase is the database used when none is configured.
	DefaultDatabase = "revstore"
	// DefaultCollection is the collection used when none is configured.
	DefaultCollection = "resources"

	encodingZstd = "zstd"
)

// Ensure Store implements the interface.
var _ driven.ResourceStore = (*Store)(nil)

// Config holds connection settings.
type Config struct {
	URI        string
	Database   string
	Collection string

	// Compress stores payloads zstd-compressed.
	Compress bool
}

// Store is a MongoDB-backed resource store.
type Store struct {
	client   *mongo.Client
	coll     *mongo.Collection
	keys     driven.KeyDeriver
	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// Connect opens a client, verifies the server is reachable and ensures the
// collection's indexes exist.
func Connect(ctx context.Context, cfg Config, keys driven.KeyDeriver) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: mongo uri is empty", domain.ErrInvalidArgument)
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s, err := newStore(client, client.Database(cfg.Database).Collection(cfg.Collection), keys, cfg.Compress)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Debug("mongo store ready: %s.%s", cfg.Database, cfg.Collection)
	return s, nil
}

func newStore(client *mongo.Client, coll *mongo.Collection, keys driven.KeyDeriver, compress bool) (*Store, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: key deriver is nil", domain.ErrInvalidArgument)
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Store{
		client:   client,
		coll:     coll,
		keys:     keys,
		compress: compress,
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "partitionKey", Value: 1}, {Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "resourceTypeName", Value: 1}, {Key: "resourceId", Value: 1}}},
		{Keys: bson.D{{Key: "lastModified", Value: 1}}},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	s.decoder.Close()
	_ = s.encoder.Close()
	return s.client.Disconnect(ctx)
}

// Upsert conditionally writes doc as the current revision.
//
// The archive record is inserted before the current record is replaced. If
// the replace loses a race, the archive is removed again.
func (s *Store) Upsert(
	ctx context.Context,
	doc *domain.VersionedDocument,
	etag *domain.WeakETag,
	allowCreate, keepHistory bool,
) (*domain.UpsertOutcome, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidArgument)
	}

	pk := s.keys.PartitionKey(doc.ResourceType, doc.ResourceID)

	existing, err := s.findOne(ctx, currentFilter(pk, doc.ResourceType, doc.ResourceID))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	plan, err := storage.PlanUpsert(existing, doc, etag, allowCreate, keepHistory)
	if err != nil {
		return nil, err
	}

	var archivedID string
	if plan.Archive != nil {
		rec := s.toRecord(pk, plan.Archive)
		if _, err := s.coll.InsertOne(ctx, rec); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, fmt.Errorf("%w: %s was archived concurrently", domain.ErrPreconditionFailed, plan.Archive.ID())
			}
			return nil, fmt.Errorf("archiving %s: %w", plan.Archive.ID(), err)
		}
		archivedID = rec.ID
	}

	if err := s.writeCurrent(ctx, pk, plan); err != nil {
		if archivedID != "" {
			if _, delErr := s.coll.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": archivedID}); delErr != nil {
				logger.Warn("failed to remove archive %s after failed write: %v", archivedID, delErr)
			}
		}
		return nil, err
	}

	return &domain.UpsertOutcome{Document: plan.Current, Kind: plan.Kind}, nil
}

func (s *Store) writeCurrent(ctx context.Context, pk string, plan *storage.WritePlan) error {
	rec := s.toRecord(pk, plan.Current)

	if plan.PreviousETag == "" {
		if _, err := s.coll.InsertOne(ctx, rec); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: %s was created concurrently", domain.ErrPreconditionFailed, plan.Current.ID())
			}
			return fmt.Errorf("inserting %s: %w", plan.Current.ID(), err)
		}
		return nil
	}

	result, err := s.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID, "_etag": plan.PreviousETag}, rec)
	if err != nil {
		return fmt.Errorf("replacing %s: %w", plan.Current.ID(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s changed since it was read", domain.ErrPreconditionFailed, plan.Current.ID())
	}
	return nil
}

// Get returns the current revision, or the revision at key.Version.
func (s *Store) Get(ctx context.Context, key domain.ResourceKey) (*domain.VersionedDocument, error) {
	pk := s.keys.PartitionKey(key.Type, key.ID)

	current, err := s.findOne(ctx, currentFilter(pk, key.Type, key.ID))
	switch {
	case err == nil:
		if key.Version == "" || current.EffectiveVersion() == key.Version {
			return current, nil
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	case key.Version == "":
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}

	doc, err := s.findOne(ctx, bson.M{
		"_id":              recordID(pk, key.ID+"_"+key.Version),
		"resourceId":       key.ID,
		"resourceTypeName": key.Type,
		"isHistory":        true,
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	return doc, err
}

// History returns every stored revision of a resource, newest first.
func (s *Store) History(ctx context.Context, key domain.ResourceKey) ([]*domain.VersionedDocument, error) {
	cur, err := s.coll.Find(ctx, bson.M{
		"partitionKey":     s.keys.PartitionKey(key.Type, key.ID),
		"resourceTypeName": key.Type,
		"resourceId":       key.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer cur.Close(ctx)

	var docs []*domain.VersionedDocument
	for cur.Next(ctx) {
		var rec record
		if err := cur.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		doc, err := s.fromRecord(&rec)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}

	storage.SortNewestFirst(docs)
	return docs, nil
}

// currentFilter matches only the current revision of a resource, never a
// history record that happens to share its document id.
func currentFilter(pk, resourceType, id string) bson.M {
	return bson.M{
		"_id":              recordID(pk, id),
		"resourceId":       id,
		"resourceTypeName": resourceType,
		"isHistory":        false,
	}
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*domain.VersionedDocument, error) {
	var rec record
	if err := s.coll.FindOne(ctx, filter).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("finding record: %w", err)
	}
	return s.fromRecord(&rec)
}

func (s *Store) toRecord(pk string, doc *domain.VersionedDocument) record {
	data, encoding := []byte(doc.Raw.Data), ""
	if s.compress {
		data, encoding = s.encoder.EncodeAll(data, nil), encodingZstd
	}
	return toRecord(pk, doc, data, encoding)
}

func (s *Store) fromRecord(rec *record) (*domain.VersionedDocument, error) {
	data := rec.RawData
	if rec.RawEncoding == encodingZstd {
		var err error
		if data, err = s.decoder.DecodeAll(rec.RawData, nil); err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", rec.DocID, err)
		}
	}
	return rec.toDocument(data), nil
}
