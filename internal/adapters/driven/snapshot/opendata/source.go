package opendata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
	"github.com/custodia-labs/planwatch/internal/logger"
	"github.com/custodia-labs/planwatch/internal/metrics"
)

// Ensure Source implements the interface.
var _ driven.SnapshotSource = (*Source)(nil)

// Source downloads the CSV export over HTTP.
type Source struct {
	url       string
	userAgent string
	client    *http.Client
}

// NewSource creates a snapshot source for the configured URL.
func NewSource(settings domain.SnapshotSettings, userAgent string) *Source {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultAppSettings().Snapshot.Timeout
	}
	return &Source{
		url:       settings.URL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the HTTP client. Used by tests.
func (s *Source) WithHTTPClient(c *http.Client) *Source {
	s.client = c
	return s
}

// Fetch downloads and maps the export. The identity is the response ETag.
func (s *Source) Fetch(ctx context.Context, knownIdentity string) (*driven.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building snapshot request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/csv, */*;q=0.5")
	if knownIdentity != "" {
		req.Header.Set("If-None-Match", knownIdentity)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		metrics.RecordSnapshot("error", 0)
		return nil, fmt.Errorf("%w: downloading snapshot: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	identity := resp.Header.Get("ETag")
	switch {
	case resp.StatusCode == http.StatusNotModified:
		metrics.RecordSnapshot("not_modified", 0)
		return nil, domain.ErrNotModified
	case resp.StatusCode != http.StatusOK:
		metrics.RecordSnapshot("error", 0)
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, &HTTPError{StatusCode: resp.StatusCode, URL: s.url})
	case knownIdentity != "" && identity == knownIdentity:
		metrics.RecordSnapshot("not_modified", 0)
		return nil, domain.ErrNotModified
	}

	snap, err := Parse(resp.Body)
	if err != nil {
		metrics.RecordSnapshot("error", 0)
		return nil, err
	}
	snap.Identity = identity

	metrics.RecordSnapshot("downloaded", snap.Rejected)
	logger.Info("snapshot: %d rows (%d rejected) in %s", len(snap.Rows), snap.Rejected,
		time.Since(start).Round(time.Millisecond))
	return snap, nil
}

// Parse reads a CSV export. A missing header or a read failure fails the
// whole file; malformed or keyless rows are counted as rejected.
func Parse(r io.Reader) (*driven.Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	record, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty snapshot", domain.ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading snapshot header: %v", domain.ErrParse, err)
	}
	header, err := NewHeader(record)
	if err != nil {
		return nil, err
	}

	snap := &driven.Snapshot{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			logger.Warn("snapshot: skipping malformed line %d: %v", parseErr.Line, parseErr.Err)
			snap.Rejected++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading snapshot: %v", domain.ErrTransport, err)
		}

		row, err := MapRecord(header, record)
		if err != nil {
			snap.Rejected++
			continue
		}
		snap.Rows = append(snap.Rows, row)
	}
	return snap, nil
}
