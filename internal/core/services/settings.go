package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driven"
	"github.com/custodia-labs/revstore/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

type settingKind int

const (
	kindBool settingKind = iota
	kindString
	kindCount
	kindBackend
	kindPublishFailure
)

type settingDef struct {
	key  string
	kind settingKind
	def  string
}

// settingDefs lists the global keys in display order.
var settingDefs = []settingDef{
	{"policy.require_etag", kindBool, "false"},
	{"policy.update_create", kindBool, "true"},
	{"policy.keep_history", kindBool, "true"},
	{"notifications.on_publish_failure", kindPublishFailure, "fail"},
	{"storage.backend", kindBackend, "sqlite"},
	{"storage.data_dir", kindString, "~/.revstore/data"},
	{"storage.compress_payloads", kindBool, "true"},
	{"storage.mongo_uri", kindString, ""},
	{"storage.mongo_database", kindString, "revstore"},
	{"storage.mongo_collection", kindString, "resources"},
	{"keys.partition_buckets", kindCount, "0"},
	{"indexing.parameters_file", kindString, "built-in"},
}

// policyNames are the per-type policy keys under policy.types.<Type>.
var policyNames = map[string]bool{
	"require_etag":  true,
	"update_create": true,
	"keep_history":  true,
}

// SettingsService validates and stores configuration values.
type SettingsService struct {
	config driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(config driven.ConfigStore) *SettingsService {
	return &SettingsService{config: config}
}

// List returns every global setting.
func (s *SettingsService) List() []driving.Setting {
	out := make([]driving.Setting, 0, len(settingDefs))
	for _, d := range settingDefs {
		out = append(out, s.setting(d))
	}
	return out
}

// Get returns one setting.
func (s *SettingsService) Get(key string) (*driving.Setting, error) {
	d, err := lookupSetting(key)
	if err != nil {
		return nil, err
	}
	setting := s.setting(d)
	return &setting, nil
}

// Set parses and stores a value.
func (s *SettingsService) Set(key, value string) error {
	if s.config == nil {
		return domain.ErrNotImplemented
	}
	d, err := lookupSetting(key)
	if err != nil {
		return err
	}
	parsed, err := parseSetting(d, value)
	if err != nil {
		return err
	}
	if err := s.config.Set(key, parsed); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

// Path returns where settings are stored.
func (s *SettingsService) Path() string {
	if s.config == nil {
		return ""
	}
	return s.config.Path()
}

func (s *SettingsService) setting(d settingDef) driving.Setting {
	setting := driving.Setting{Key: d.key, Default: d.def}
	if s.config != nil {
		if v, ok := s.config.Get(d.key); ok {
			setting.Value = v
		}
	}
	return setting
}

func lookupSetting(key string) (settingDef, error) {
	for _, d := range settingDefs {
		if d.key == key {
			return d, nil
		}
	}

	// policy.types.<Type>.<name>
	if rest, ok := strings.CutPrefix(key, "policy.types."); ok {
		i := strings.LastIndex(rest, ".")
		if i > 0 && policyNames[rest[i+1:]] {
			def := "policy." + rest[i+1:]
			for _, d := range settingDefs {
				if d.key == def {
					return settingDef{key: key, kind: kindBool, def: "inherits " + def}, nil
				}
			}
		}
	}
	return settingDef{}, fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidArgument, key)
}

func parseSetting(d settingDef, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch d.kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, d.key)
		}
		return b, nil
	case kindCount:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, d.key)
		}
		return int64(n), nil
	case kindBackend:
		switch strings.ToLower(value) {
		case "sqlite", "memory", "mongo":
			return strings.ToLower(value), nil
		}
		return nil, fmt.Errorf("%w: %s must be sqlite, memory or mongo", domain.ErrInvalidInput, d.key)
	case kindPublishFailure:
		p, err := domain.ParsePublishFailurePolicy(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return p.String(), nil
	default:
		return value, nil
	}
}
