// Command revstore is the composition root: it reads configuration, selects
// a storage backend and wires the services behind the CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/revstore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/revstore/internal/adapters/driven/events"
	"github.com/custodia-labs/revstore/internal/adapters/driven/indexing"
	"github.com/custodia-labs/revstore/internal/adapters/driven/keys"
	"github.com/custodia-labs/revstore/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/revstore/internal/adapters/driven/storage/mongo"
	"github.com/custodia-labs/revstore/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/revstore/internal/adapters/driving/cli"
	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driven"
	"github.com/custodia-labs/revstore/internal/core/services"
	"github.com/custodia-labs/revstore/internal/logger"
)

// Configuration keys read at startup.
const (
	keyBackend         = "storage.backend"
	keyDataDir         = "storage.data_dir"
	keyCompress        = "storage.compress_payloads"
	keyMongoURI        = "storage.mongo_uri"
	keyMongoDatabase   = "storage.mongo_database"
	keyMongoCollection = "storage.mongo_collection"
	keyBuckets         = "keys.partition_buckets"
	keyParametersFile  = "indexing.parameters_file"
)

const connectTimeout = 10 * time.Second

func main() {
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

func bootstrap(opts cli.Options) (*cli.Services, func(), error) {
	config, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger.Debug("Config loaded from %s", config.Path())

	deriver := keys.New(config.GetInt(keyBuckets))

	store, closeStore, err := openStore(opts, config, deriver)
	if err != nil {
		return nil, nil, err
	}

	factory, err := newFactory(config)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	bus := events.NewBus()
	bus.SubscribeAll(func(_ context.Context, e domain.Event) error {
		logger.Debug("Event %s: %s version %s", e.Kind, e.Resource.Key(), e.Resource.VersionID)
		return nil
	})

	policy := file.NewPolicySource(config)
	upsert := services.NewUpsertService(store, policy, factory, bus)
	if err := applyPublishFailurePolicy(upsert, config); err != nil {
		closeStore()
		return nil, nil, err
	}

	// Policy lookups read the store on every call; only the publish failure
	// policy is cached and needs refreshing on change.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		err := config.Watch(ctx, func() {
			if err := applyPublishFailurePolicy(upsert, config); err != nil {
				logger.Warn("Ignoring config change: %v", err)
			}
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("Config watch stopped: %v", err)
		}
	}()

	svc := &cli.Services{
		Upsert:    upsert,
		Resources: services.NewResourceService(store, policy),
		Settings:  services.NewSettingsService(config),
	}
	return svc, func() {
		cancel()
		closeStore()
	}, nil
}

func openStore(opts cli.Options, config driven.ConfigStore, deriver driven.KeyDeriver) (driven.ResourceStore, func(), error) {
	backend := opts.Backend
	if backend == "" {
		backend = config.GetString(keyBackend)
	}

	switch strings.ToLower(backend) {
	case "", "sqlite":
		dataDir := opts.DataDir
		if dataDir == "" {
			dataDir = expandHome(config.GetString(keyDataDir))
		}
		compress, err := boolSetting(config, keyCompress, true)
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlite.NewStore(dataDir, deriver, sqlite.WithCompression(compress))
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Debug("Using sqlite store at %s", store.Path())
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("Closing sqlite store: %v", err)
			}
		}, nil

	case "memory":
		logger.Debug("Using in-memory store")
		return memory.NewResourceStore(deriver), func() {}, nil

	case "mongo":
		compress, err := boolSetting(config, keyCompress, false)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		store, err := mongo.Connect(ctx, mongo.Config{
			URI:        config.GetString(keyMongoURI),
			Database:   config.GetString(keyMongoDatabase),
			Collection: config.GetString(keyMongoCollection),
			Compress:   compress,
		}, deriver)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()
			if err := store.Close(ctx); err != nil {
				logger.Warn("Closing mongo store: %v", err)
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidArgument, backend)
	}
}

func newFactory(config driven.ConfigStore) (*indexing.Factory, error) {
	var (
		defs *indexing.Definitions
		err  error
	)
	if path := config.GetString(keyParametersFile); path != "" {
		defs, err = indexing.LoadDefinitionsFile(expandHome(path))
	} else {
		defs, err = indexing.DefaultDefinitions()
	}
	if err != nil {
		return nil, fmt.Errorf("loading search parameters: %w", err)
	}
	logger.Debug("Search parameter hash %s", defs.Hash())
	return indexing.NewFactory(defs)
}

func applyPublishFailurePolicy(s *services.UpsertService, config driven.ConfigStore) error {
	p, err := file.PublishFailurePolicy(config)
	if err != nil {
		return err
	}
	s.SetPublishFailurePolicy(p)
	return nil
}

// boolSetting reads an optional boolean, rejecting values of another type.
func boolSetting(config driven.ConfigStore, key string, def bool) (bool, error) {
	v, ok := config.Get(key)
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean, got %T", domain.ErrInvalidInput, key, v)
	}
	return b, nil
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
