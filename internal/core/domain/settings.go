package domain

import "time"

// Default endpoints for the City of York feeds.
const (
	DefaultSnapshotURL   = "https://data-cyc.opendata.arcgis.com/datasets/7044d1920639460da3fc4a3fa9273107_5.csv"
	DefaultPortalBaseURL = "https://planningaccess.york.gov.uk/online-applications"
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// SnapshotSettings configures the open-data download.
type SnapshotSettings struct {
	// URL is the CSV export location.
	URL string

	// Timeout bounds the whole download.
	Timeout time.Duration
}

// PortalSettings configures requests against the planning portal.
type PortalSettings struct {
	// BaseURL is the portal root, without trailing slash.
	BaseURL string

	// UserAgent is sent on every request; the portal rejects unknown clients.
	UserAgent string

	// Timeout bounds each individual request.
	Timeout time.Duration
}

// EnrichmentSettings configures the enrichment worker.
type EnrichmentSettings struct {
	// BatchSize is the maximum number of records drained per cycle.
	BatchSize int

	// Concurrency is the number of records fetched in parallel.
	Concurrency int

	// Delay is the minimum spacing between portal fetches.
	Delay time.Duration

	// MaxAttempts is the number of consecutive failures after which a
	// record leaves the backlog until enriched manually.
	MaxAttempts int
}

// DecisionSettings configures the secondary decision sync.
type DecisionSettings struct {
	// Enabled toggles the stage.
	Enabled bool

	// WindowDays is the trailing window searched for decisions.
	WindowDays int
}

// AppSettings holds all user-configurable application settings.
type AppSettings struct {
	Snapshot   SnapshotSettings
	Portal     PortalSettings
	Enrichment EnrichmentSettings
	Decisions  DecisionSettings
	Scheduler  SchedulerConfig
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Snapshot: SnapshotSettings{
			URL:     DefaultSnapshotURL,
			Timeout: 60 * time.Second,
		},
		Portal: PortalSettings{
			BaseURL:   DefaultPortalBaseURL,
			UserAgent: DefaultUserAgent,
			Timeout:   15 * time.Second,
		},
		Enrichment: EnrichmentSettings{
			BatchSize:   500,
			Concurrency: 1,
			Delay:       time.Second,
			MaxAttempts: 5,
		},
		Decisions: DecisionSettings{
			Enabled:    true,
			WindowDays: 7,
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}
