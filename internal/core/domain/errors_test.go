package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidArgument", ErrInvalidArgument},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrPreconditionRequired", ErrPreconditionRequired},
		{"ErrPreconditionFailed", ErrPreconditionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	assert.False(t, errors.Is(ErrPreconditionRequired, ErrPreconditionFailed))
	assert.False(t, errors.Is(ErrPreconditionFailed, ErrNotFound))
}

func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("%w: Patient/R1 is at version 3", ErrPreconditionFailed)
	assert.True(t, errors.Is(err, ErrPreconditionFailed))
	assert.Contains(t, err.Error(), "precondition failed")
}
