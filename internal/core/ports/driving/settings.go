package driving

import "github.com/custodia-labs/planwatch/internal/core/domain"

// SettingsService reads and writes the user's configuration with defaults
// applied. Keys are the dot names shown by "planwatch settings".
type SettingsService interface {
	// Get returns the effective settings.
	Get() (*domain.AppSettings, error)

	// Save writes every key from settings.
	Save(settings *domain.AppSettings) error

	// GetValue returns the effective value of one key as text.
	GetValue(key string) (string, error)

	// SetValue parses value for the key's type and persists it. Unknown
	// keys and out-of-range values return domain.ErrInvalidInput.
	SetValue(key, value string) error

	// Keys lists every key in display order.
	Keys() []string

	GetDefaults() domain.AppSettings
}
