package driven

import (
	"context"

	"github.com/custodia-labs/revstore/internal/core/domain"
)

// EventBus delivers post-write notifications.
type EventBus interface {
	Publish(ctx context.Context, event domain.Event) error
}
