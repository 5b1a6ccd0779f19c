package cli

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/revstore/internal/core/domain"
)

// describeError prefixes err with a hint for the conditions users can act on.
func describeError(err error) error {
	switch {
	case errors.Is(err, domain.ErrPreconditionRequired):
		return fmt.Errorf("an --if-match version is required for this resource type: %w", err)
	case errors.Is(err, domain.ErrPreconditionFailed):
		return fmt.Errorf("the resource was changed by someone else, fetch it and retry: %w", err)
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("not found: %w", err)
	default:
		return err
	}
}
