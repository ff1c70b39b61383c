package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCycle(t *testing.T) {
	before := testutil.ToFloat64(CyclesTotal.WithLabelValues("completed"))
	RecordCycle("completed", 2*time.Second, false)
	assert.Equal(t, before+1, testutil.ToFloat64(CyclesTotal.WithLabelValues("completed")))
	assert.Greater(t, testutil.ToFloat64(CycleLastSuccess), float64(0))
}

func TestRecordCycle_AlreadyRunningSkipsDuration(t *testing.T) {
	before := testutil.CollectAndCount(CycleDuration)
	RecordCycle("already_running", time.Second, false)
	assert.Equal(t, before, testutil.CollectAndCount(CycleDuration))
}

func TestRecordReconcile(t *testing.T) {
	added := testutil.ToFloat64(ReconcileRows.WithLabelValues("added"))
	errs := testutil.ToFloat64(ReconcileRows.WithLabelValues("error"))

	RecordReconcile(3, 1, 10, 2, 1)

	assert.Equal(t, added+3, testutil.ToFloat64(ReconcileRows.WithLabelValues("added")))
	assert.Equal(t, errs+1, testutil.ToFloat64(ReconcileRows.WithLabelValues("error")))
}

func TestRecordEnrichment(t *testing.T) {
	ok := testutil.ToFloat64(EnrichmentTotal.WithLabelValues("success"))
	fail := testutil.ToFloat64(EnrichmentTotal.WithLabelValues("failure"))
	warn := testutil.ToFloat64(ValidationWarnings)

	RecordEnrichment(true, true)
	RecordEnrichment(false, false)

	assert.Equal(t, ok+1, testutil.ToFloat64(EnrichmentTotal.WithLabelValues("success")))
	assert.Equal(t, fail+1, testutil.ToFloat64(EnrichmentTotal.WithLabelValues("failure")))
	assert.Equal(t, warn+1, testutil.ToFloat64(ValidationWarnings))
}

func TestRecordPortalRequest(t *testing.T) {
	tests := []struct {
		name  string
		code  int
		label string
	}{
		{"ok", 200, "200"},
		{"server error", 503, "503"},
		{"no response", 0, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := PortalRequests.WithLabelValues("summary", tt.label)
			before := testutil.ToFloat64(c)
			RecordPortalRequest("summary", tt.code, 10*time.Millisecond)
			assert.Equal(t, before+1, testutil.ToFloat64(c))
		})
	}
}

func TestRecordKeyResolution(t *testing.T) {
	c := KeyResolutions.WithLabelValues("resolved")
	before := testutil.ToFloat64(c)
	RecordKeyResolution("resolved")
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestRecordSnapshot(t *testing.T) {
	notModified := testutil.ToFloat64(SnapshotDownloads.WithLabelValues("not_modified"))
	rejected := testutil.ToFloat64(SnapshotRejectedRows)

	RecordSnapshot("not_modified", 0)
	RecordSnapshot("downloaded", 4)

	assert.Equal(t, notModified+1, testutil.ToFloat64(SnapshotDownloads.WithLabelValues("not_modified")))
	assert.Equal(t, rejected+4, testutil.ToFloat64(SnapshotRejectedRows))
}

func TestRecordBreakerState(t *testing.T) {
	RecordBreakerState(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(PortalBreakerState))
	RecordBreakerState(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(PortalBreakerState))
}
