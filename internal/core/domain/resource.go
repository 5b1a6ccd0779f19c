package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// resourceIDPattern is the accepted id charset. It excludes "_", which
// separates the id from the version in history document ids.
var resourceIDPattern = regexp.MustCompile(`^[A-Za-z0-9\-.]{1,64}$`)

// ValidateResourceID reports whether id can be stored as a resource id.
func ValidateResourceID(id string) error {
	if !resourceIDPattern.MatchString(id) {
		return fmt.Errorf("%w: resource id %q must be 1-64 characters of A-Z, a-z, 0-9, '-' or '.'",
			ErrInvalidArgument, id)
	}
	return nil
}

// ResourceKind is the closed set of resource variants that select a
// notification. It is resolved once when a Resource is parsed.
type ResourceKind int

const (
	// KindGeneric covers every resource type without special handling.
	KindGeneric ResourceKind = iota

	// KindSubscription marks Subscription resources.
	KindSubscription
)

// SubscriptionType is the resource type name of subscriptions.
const SubscriptionType = "Subscription"

// KindOf resolves the kind for a resource type name.
func KindOf(resourceType string) ResourceKind {
	if resourceType == SubscriptionType {
		return KindSubscription
	}
	return KindGeneric
}

// String returns the kind name.
func (k ResourceKind) String() string {
	switch k {
	case KindSubscription:
		return "subscription"
	default:
		return "generic"
	}
}

// Resource is a resource as supplied by, and returned to, callers.
// Body holds the JSON object; Type, ID and the meta fields are lifted out of it.
type Resource struct {
	// Type is the resource type name (e.g., "Patient").
	Type string

	// ID is the logical identity. Empty until assigned.
	ID string

	// VersionID is the committed version, set after a successful write.
	VersionID string

	// LastUpdated is the time of the committed write.
	LastUpdated time.Time

	// Kind is resolved from Type at parse time.
	Kind ResourceKind

	body map[string]any
}

// ParseResource decodes a JSON resource. The object must carry a
// "resourceType" string; "id" and "meta" are optional.
func ParseResource(data []byte) (*Resource, error) {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: resource must be a JSON object", ErrInvalidInput)
	}
	return ResourceFromMap(body)
}

// ResourceFromMap builds a resource from an already decoded JSON object.
// The map is owned by the returned resource.
func ResourceFromMap(body map[string]any) (*Resource, error) {
	resourceType, _ := body["resourceType"].(string)
	if resourceType == "" {
		return nil, fmt.Errorf("%w: missing resourceType", ErrInvalidInput)
	}

	r := &Resource{
		Type: resourceType,
		Kind: KindOf(resourceType),
		body: body,
	}
	if id, ok := body["id"].(string); ok && id != "" {
		if err := ValidateResourceID(id); err != nil {
			return nil, err
		}
		r.ID = id
	}
	if meta, ok := body["meta"].(map[string]any); ok {
		if v, ok := meta["versionId"].(string); ok {
			r.VersionID = v
		}
		if v, ok := meta["lastUpdated"].(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				r.LastUpdated = ts
			}
		}
	}
	return r, nil
}

// Key returns the resource key without a version.
func (r *Resource) Key() ResourceKey {
	return ResourceKey{Type: r.Type, ID: r.ID}
}

// Field returns a top-level field of the JSON body.
func (r *Resource) Field(name string) (any, bool) {
	v, ok := r.body[name]
	return v, ok
}

// Body returns the decoded JSON object with id and meta reflecting the
// current field values. The returned map is a shallow copy.
func (r *Resource) Body() map[string]any {
	out := make(map[string]any, len(r.body)+2)
	for k, v := range r.body {
		out[k] = v
	}
	out["resourceType"] = r.Type
	if r.ID != "" {
		out["id"] = r.ID
	} else {
		delete(out, "id")
	}

	meta := make(map[string]any)
	if existing, ok := r.body["meta"].(map[string]any); ok {
		for k, v := range existing {
			meta[k] = v
		}
	}
	delete(meta, "versionId")
	delete(meta, "lastUpdated")
	if r.VersionID != "" {
		meta["versionId"] = r.VersionID
	}
	if !r.LastUpdated.IsZero() {
		meta["lastUpdated"] = r.LastUpdated.UTC().Format(time.RFC3339Nano)
	}
	if len(meta) > 0 {
		out["meta"] = meta
	} else {
		delete(out, "meta")
	}
	return out
}

// MarshalJSON renders the canonical JSON form. Keys are emitted in sorted
// order so the output is stable.
func (r *Resource) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Body())
}

// Clone returns a copy that shares no mutable state with r.
func (r *Resource) Clone() *Resource {
	c := *r
	c.body = r.Body()
	return &c
}

// ResourceKey addresses a logical resource, optionally at one version.
type ResourceKey struct {
	Type    string
	ID      string
	Version string
}

// String renders "Type/id" or "Type/id/_history/version".
func (k ResourceKey) String() string {
	if k.Version != "" {
		return k.Type + "/" + k.ID + "/_history/" + k.Version
	}
	return k.Type + "/" + k.ID
}
