package driven

// ConfigStore holds user settings as flat dot-notation keys
// ("enrichment.batch_size"). SettingsService applies defaults and types
// on top; the store only keeps what the user set.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	// GetString returns the value if it is a string, else "".
	GetString(key string) string

	// GetInt returns the value if it is an integer, else 0.
	GetInt(key string) int

	// GetBool returns the value if it is a boolean, else false.
	GetBool(key string) bool

	// Set stores a value and persists it before returning.
	Set(key string, value any) error

	// Save persists all values.
	Save() error

	// Load re-reads values from storage, discarding unsaved changes.
	Load() error

	// Path identifies the backing file, for display.
	Path() string
}
