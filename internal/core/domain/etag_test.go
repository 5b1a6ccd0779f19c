package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeakETag(t *testing.T) {
	for _, input := range []string{`W/"3"`, `"3"`, `3`, ` W/"3" `} {
		t.Run(input, func(t *testing.T) {
			etag, err := ParseWeakETag(input)
			require.NoError(t, err)
			assert.Equal(t, "3", etag.VersionID)
		})
	}
}

func TestParseWeakETag_Empty(t *testing.T) {
	for _, input := range []string{"", `W/""`, `""`} {
		_, err := ParseWeakETag(input)
		assert.True(t, errors.Is(err, ErrInvalidArgument), input)
	}
}

func TestWeakETag_String(t *testing.T) {
	assert.Equal(t, `W/"5"`, WeakETagFromVersion("5").String())
}

func TestQuoteETag(t *testing.T) {
	assert.Equal(t, `"5"`, QuoteETag("5"))
	assert.Equal(t, "5", UnquoteETag(QuoteETag("5")))
}
