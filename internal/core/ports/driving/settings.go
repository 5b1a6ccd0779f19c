package driving

// Setting is one configuration key with its current value.
type Setting struct {
	Key string

	// Value is nil when the key is unset.
	Value any

	// Default describes the value used when the key is unset.
	Default string
}

// SettingsService reads and changes the configuration keys revstore knows.
type SettingsService interface {
	// List returns every global setting in a stable order.
	List() []Setting

	// Get returns a single setting. Per-type policy keys such as
	// "policy.types.Patient.require_etag" are accepted.
	Get(key string) (*Setting, error)

	// Set parses value for the key's type and stores it.
	Set(key, value string) error

	// Path identifies where settings are stored.
	Path() string
}
