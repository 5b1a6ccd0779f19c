package driven

import "context"

// PolicySource answers write-policy questions about a resource type.
// Answers may change between calls.
type PolicySource interface {
	// RequireETag reports whether updates must carry a concurrency token.
	RequireETag(ctx context.Context, resourceType string) (bool, error)

	// CanUpdateCreate reports whether an update may create an absent resource.
	CanUpdateCreate(ctx context.Context, resourceType string) (bool, error)

	// CanKeepHistory reports whether superseded revisions are retained.
	CanKeepHistory(ctx context.Context, resourceType string) (bool, error)
}
