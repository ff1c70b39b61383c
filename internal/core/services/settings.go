package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
	"github.com/custodia-labs/planwatch/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keySnapshotURL       = "snapshot.url"
	keySnapshotTimeout   = "snapshot.timeout_seconds"
	keyPortalBaseURL     = "portal.base_url"
	keyPortalUserAgent   = "portal.user_agent"
	keyPortalTimeout     = "portal.timeout_seconds"
	keyEnrichBatchSize   = "enrichment.batch_size"
	keyEnrichConcurrency = "enrichment.concurrency"
	keyEnrichDelay       = "enrichment.delay_ms"
	keyEnrichMaxAttempts = "enrichment.max_attempts"
	keyDecisionsEnabled  = "decisions.enabled"
	keyDecisionsWindow   = "decisions.window_days"
	keySchedulerEnabled  = "scheduler.enabled"
	keySchedulerInterval = "scheduler.interval_minutes"
	keySchedulerBacklog  = "scheduler.backlog_minutes"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
)

// settingKeys lists every configurable key in display order, with its type
// and the smallest integer value accepted.
var settingKeys = []struct {
	name string
	kind valueKind
	min  int
}{
	{keySnapshotURL, kindString, 0},
	{keySnapshotTimeout, kindInt, 1},
	{keyPortalBaseURL, kindString, 0},
	{keyPortalUserAgent, kindString, 0},
	{keyPortalTimeout, kindInt, 1},
	{keyEnrichBatchSize, kindInt, 1},
	{keyEnrichConcurrency, kindInt, 1},
	{keyEnrichDelay, kindInt, 0},
	{keyEnrichMaxAttempts, kindInt, 0},
	{keyDecisionsEnabled, kindBool, 0},
	{keyDecisionsWindow, kindInt, 1},
	{keySchedulerEnabled, kindBool, 0},
	{keySchedulerInterval, kindInt, 1},
	{keySchedulerBacklog, kindInt, 0},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Snapshot: domain.SnapshotSettings{
			URL:     s.getString(keySnapshotURL, defaults.Snapshot.URL),
			Timeout: s.getSeconds(keySnapshotTimeout, defaults.Snapshot.Timeout),
		},
		Portal: domain.PortalSettings{
			BaseURL:   strings.TrimRight(s.getString(keyPortalBaseURL, defaults.Portal.BaseURL), "/"),
			UserAgent: s.getString(keyPortalUserAgent, defaults.Portal.UserAgent),
			Timeout:   s.getSeconds(keyPortalTimeout, defaults.Portal.Timeout),
		},
		Enrichment: domain.EnrichmentSettings{
			BatchSize:   s.getInt(keyEnrichBatchSize, defaults.Enrichment.BatchSize),
			Concurrency: s.getInt(keyEnrichConcurrency, defaults.Enrichment.Concurrency),
			Delay: time.Duration(s.getInt(keyEnrichDelay,
				int(defaults.Enrichment.Delay/time.Millisecond))) * time.Millisecond,
			MaxAttempts: s.getInt(keyEnrichMaxAttempts, defaults.Enrichment.MaxAttempts),
		},
		Decisions: domain.DecisionSettings{
			Enabled:    s.getBool(keyDecisionsEnabled, defaults.Decisions.Enabled),
			WindowDays: s.getInt(keyDecisionsWindow, defaults.Decisions.WindowDays),
		},
		Scheduler: s.GetSchedulerConfig(),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keySnapshotURL, settings.Snapshot.URL},
		{keySnapshotTimeout, int(settings.Snapshot.Timeout / time.Second)},
		{keyPortalBaseURL, settings.Portal.BaseURL},
		{keyPortalUserAgent, settings.Portal.UserAgent},
		{keyPortalTimeout, int(settings.Portal.Timeout / time.Second)},
		{keyEnrichBatchSize, settings.Enrichment.BatchSize},
		{keyEnrichConcurrency, settings.Enrichment.Concurrency},
		{keyEnrichDelay, int(settings.Enrichment.Delay / time.Millisecond)},
		{keyEnrichMaxAttempts, settings.Enrichment.MaxAttempts},
		{keyDecisionsEnabled, settings.Decisions.Enabled},
		{keyDecisionsWindow, settings.Decisions.WindowDays},
		{keySchedulerEnabled, settings.Scheduler.Enabled},
		{keySchedulerInterval, int(settings.Scheduler.Interval / time.Minute)},
		{keySchedulerBacklog, int(settings.Scheduler.BacklogInterval / time.Minute)},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Keys returns all configurable keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.name
	}
	return keys
}

// GetValue returns the effective value of a key as text.
func (s *SettingsService) GetValue(key string) (string, error) {
	settings, err := s.Get()
	if err != nil {
		return "", err
	}

	switch key {
	case keySnapshotURL:
		return settings.Snapshot.URL, nil
	case keySnapshotTimeout:
		return strconv.Itoa(int(settings.Snapshot.Timeout / time.Second)), nil
	case keyPortalBaseURL:
		return settings.Portal.BaseURL, nil
	case keyPortalUserAgent:
		return settings.Portal.UserAgent, nil
	case keyPortalTimeout:
		return strconv.Itoa(int(settings.Portal.Timeout / time.Second)), nil
	case keyEnrichBatchSize:
		return strconv.Itoa(settings.Enrichment.BatchSize), nil
	case keyEnrichConcurrency:
		return strconv.Itoa(settings.Enrichment.Concurrency), nil
	case keyEnrichDelay:
		return strconv.Itoa(int(settings.Enrichment.Delay / time.Millisecond)), nil
	case keyEnrichMaxAttempts:
		return strconv.Itoa(settings.Enrichment.MaxAttempts), nil
	case keyDecisionsEnabled:
		return strconv.FormatBool(settings.Decisions.Enabled), nil
	case keyDecisionsWindow:
		return strconv.Itoa(settings.Decisions.WindowDays), nil
	case keySchedulerEnabled:
		return strconv.FormatBool(settings.Scheduler.Enabled), nil
	case keySchedulerInterval:
		return strconv.Itoa(int(settings.Scheduler.Interval / time.Minute)), nil
	case keySchedulerBacklog:
		return strconv.Itoa(int(settings.Scheduler.BacklogInterval / time.Minute)), nil
	default:
		return "", fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
}

// SetValue parses value according to the key's type and persists it.
func (s *SettingsService) SetValue(key, value string) error {
	value = strings.TrimSpace(value)
	for _, k := range settingKeys {
		if k.name != key {
			continue
		}
		switch k.kind {
		case kindInt:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
			}
			if n < k.min {
				return fmt.Errorf("%w: %s must be at least %d", domain.ErrInvalidInput, key, k.min)
			}
			return s.configStore.Set(key, n)
		case kindBool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
			}
			return s.configStore.Set(key, b)
		default:
			if value == "" {
				return fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidInput, key)
			}
			return s.configStore.Set(key, value)
		}
	}
	return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// GetSchedulerConfig returns the scheduler configuration, falling back to
// defaults for unset keys. A backlog interval of zero disables drains.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	defaults := domain.DefaultSchedulerConfig()
	config := domain.SchedulerConfig{
		Enabled:  s.getBool(keySchedulerEnabled, defaults.Enabled),
		Interval: defaults.Interval,
		BacklogInterval: time.Duration(s.getInt(keySchedulerBacklog,
			int(defaults.BacklogInterval/time.Minute))) * time.Minute,
	}
	if minutes := s.getInt(keySchedulerInterval, 0); minutes > 0 {
		config.Interval = time.Duration(minutes) * time.Minute
	}
	if config.BacklogInterval < 0 {
		config.BacklogInterval = 0
	}
	return config
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	n := s.getInt(key, int(defaultVal/time.Second))
	if n <= 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Second
}
