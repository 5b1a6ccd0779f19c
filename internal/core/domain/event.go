package domain

import "time"

// EventKind names a notification.
type EventKind string

const (
	// EventResourceChanged is published after any non-subscription upsert.
	EventResourceChanged EventKind = "resource-changed"

	// EventSubscriptionChanged is published after a subscription upsert.
	EventSubscriptionChanged EventKind = "subscription-changed"
)

// Event is a post-write notification.
type Event struct {
	Kind       EventKind
	Resource   *Resource
	OccurredAt time.Time
}

// UpsertEventFor selects the notification for a committed resource.
func UpsertEventFor(r *Resource, at time.Time) Event {
	var kind EventKind
	switch r.Kind {
	case KindSubscription:
		kind = EventSubscriptionChanged
	default:
		kind = EventResourceChanged
	}
	return Event{Kind: kind, Resource: r, OccurredAt: at}
}
