package domain

import (
	"fmt"
	"strings"
)

// WeakETag is a concurrency token supplied by a caller. The zero value is
// not valid; an absent token is represented by a nil *WeakETag.
type WeakETag struct {
	VersionID string
}

// ParseWeakETag accepts `W/"3"`, `"3"` and `3`.
func ParseWeakETag(s string) (*WeakETag, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	if v == "" {
		return nil, fmt.Errorf("%w: empty etag %q", ErrInvalidArgument, s)
	}
	return &WeakETag{VersionID: v}, nil
}

// WeakETagFromVersion wraps a version id.
func WeakETagFromVersion(version string) *WeakETag {
	return &WeakETag{VersionID: version}
}

// String renders the tag in its header form.
func (e *WeakETag) String() string {
	return `W/"` + e.VersionID + `"`
}

// QuoteETag renders a version as a stored concurrency token.
func QuoteETag(version string) string {
	return `"` + version + `"`
}

// UnquoteETag strips the surrounding quote characters of a token.
func UnquoteETag(etag string) string {
	return strings.Trim(etag, `"`)
}
