package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, DefaultSnapshotURL, s.Snapshot.URL)
	assert.Equal(t, DefaultPortalBaseURL, s.Portal.BaseURL)
	assert.Contains(t, s.Portal.UserAgent, "Mozilla/5.0")
	assert.Equal(t, 15*time.Second, s.Portal.Timeout)
	assert.Equal(t, 500, s.Enrichment.BatchSize)
	assert.Equal(t, 1, s.Enrichment.Concurrency)
	assert.Equal(t, time.Second, s.Enrichment.Delay)
	assert.Equal(t, 5, s.Enrichment.MaxAttempts)
	assert.True(t, s.Decisions.Enabled)
	assert.Equal(t, 7, s.Decisions.WindowDays)
	assert.True(t, s.Scheduler.Enabled)
	assert.Equal(t, 6*time.Hour, s.Scheduler.Interval)
}
