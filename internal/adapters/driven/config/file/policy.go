package file

import (
	"context"
	"fmt"

	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driven"
)

// Configuration keys read by PolicySource.
const (
	KeyRequireETag      = "require_etag"
	KeyUpdateCreate     = "update_create"
	KeyKeepHistory      = "keep_history"
	KeyOnPublishFailure = "notifications.on_publish_failure"
)

// DefaultPolicy applies to any type and key not present in the config.
var DefaultPolicy = domain.ResourcePolicy{
	RequireETag:  false,
	UpdateCreate: true,
	KeepHistory:  true,
}

// Ensure PolicySource implements the interface.
var _ driven.PolicySource = (*PolicySource)(nil)

// PolicySource answers policy questions from a ConfigStore. A value under
// policy.types.<Type> overrides the global value under policy for that type.
// The store is consulted on every call, so reloads take effect immediately.
type PolicySource struct {
	config driven.ConfigStore
}

// NewPolicySource creates a policy source over config.
func NewPolicySource(config driven.ConfigStore) *PolicySource {
	return &PolicySource{config: config}
}

// RequireETag reports whether updates of resourceType must carry an etag.
func (p *PolicySource) RequireETag(ctx context.Context, resourceType string) (bool, error) {
	return p.lookup(ctx, resourceType, KeyRequireETag, DefaultPolicy.RequireETag)
}

// CanUpdateCreate reports whether an update may create an absent resource.
func (p *PolicySource) CanUpdateCreate(ctx context.Context, resourceType string) (bool, error) {
	return p.lookup(ctx, resourceType, KeyUpdateCreate, DefaultPolicy.UpdateCreate)
}

// CanKeepHistory reports whether superseded revisions are retained.
func (p *PolicySource) CanKeepHistory(ctx context.Context, resourceType string) (bool, error) {
	return p.lookup(ctx, resourceType, KeyKeepHistory, DefaultPolicy.KeepHistory)
}

func (p *PolicySource) lookup(ctx context.Context, resourceType, name string, def bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	for _, key := range []string{"policy.types." + resourceType + "." + name, "policy." + name} {
		val, ok := p.config.Get(key)
		if !ok {
			continue
		}
		b, ok := val.(bool)
		if !ok {
			return false, fmt.Errorf("%w: %s must be a boolean, got %T", domain.ErrInvalidInput, key, val)
		}
		return b, nil
	}
	return def, nil
}

// PublishFailurePolicy reads notifications.on_publish_failure.
func PublishFailurePolicy(config driven.ConfigStore) (domain.PublishFailurePolicy, error) {
	return domain.ParsePublishFailurePolicy(config.GetString(KeyOnPublishFailure))
}
