package driven

// ConfigStore holds application settings under dotted keys such as
// "policy.keep_history" or "policy.types.Patient.require_etag".
//
// PolicySource implementations read it on every call, so values changed
// through Set or a reload apply to the next write.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	// GetString returns "" when the key is unset or not a string.
	GetString(key string) string

	// GetInt returns 0 when the key is unset or not an integer.
	GetInt(key string) int

	// GetBool returns false when the key is unset or not a boolean.
	GetBool(key string) bool

	// Set stores a value. File-backed stores persist it immediately.
	Set(key string, value any) error

	// Path identifies where the settings live.
	Path() string
}
