package domain

import (
	"fmt"
	"strings"
)

// ResourcePolicy is the set of write policies in force for a resource type.
type ResourcePolicy struct {
	RequireETag  bool
	UpdateCreate bool
	KeepHistory  bool
}

// PublishFailurePolicy decides what an upsert does when the write committed
// but the notification could not be published.
type PublishFailurePolicy int

const (
	// PublishFailureFail returns the publish error to the caller.
	PublishFailureFail PublishFailurePolicy = iota

	// PublishFailureWarn logs the error and returns the committed result.
	PublishFailureWarn
)

// String returns the policy name.
func (p PublishFailurePolicy) String() string {
	if p == PublishFailureWarn {
		return "warn"
	}
	return "fail"
}

// ParsePublishFailurePolicy parses "fail" or "warn". Empty means fail.
func ParsePublishFailurePolicy(s string) (PublishFailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return PublishFailureFail, nil
	case "warn":
		return PublishFailureWarn, nil
	default:
		return PublishFailureFail, fmt.Errorf("%w: publish failure policy %q", ErrInvalidArgument, s)
	}
}
