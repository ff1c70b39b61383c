package opendata

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

// Column names in the export.
const (
	colKey       = "KEYVAL"
	colProposal  = "PROPOSAL"
	colStatus    = "DCSTAT"
	colReceived  = "DATEAPRECV"
	colValidated = "DATEAPVAL"
	colLatitude  = "LATITUDE"
	colLongitude = "LONGITUDE"
	colObject    = "OBJ"
)

// referenceColumns are tried in order for the human reference.
var referenceColumns = []string{"REFVAL", "REF", "REFERENCE"}

// objectColumns are tried in order for the feed's row identifier.
var objectColumns = []string{colObject, "OBJECTID"}

// DefaultStatus is used when a row has no status code.
const DefaultStatus = "Unknown"

// Header maps column names to positions in a record.
type Header map[string]int

// NewHeader indexes a header record. Names are trimmed and upper-cased, and a
// leading byte order mark is dropped. The key column is required.
func NewHeader(record []string) (Header, error) {
	h := make(Header, len(record))
	for i, name := range record {
		name = strings.TrimPrefix(name, "\ufeff")
		name = strings.ToUpper(strings.TrimSpace(name))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	if _, ok := h[colKey]; !ok {
		return nil, fmt.Errorf("%w: snapshot has no %s column", domain.ErrParse, colKey)
	}
	return h, nil
}

// value returns the trimmed field for column, or "" if absent.
func (h Header) value(record []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (h Header) first(record []string, columns []string) string {
	for _, c := range columns {
		if v := h.value(record, c); v != "" {
			return v
		}
	}
	return ""
}

// MapRecord converts one CSV record into a snapshot row.
//
// Defaulting rules:
//   - a blank key rejects the row
//   - the reference falls back through REFVAL, REF, REFERENCE, then the key
//   - a blank status becomes DefaultStatus
//   - unparseable dates become nil
//   - missing, unparseable or (0,0) coordinates become nil
//   - a missing object id becomes 0
func MapRecord(h Header, record []string) (domain.SnapshotRow, error) {
	key := h.value(record, colKey)
	if key == "" {
		return domain.SnapshotRow{}, fmt.Errorf("%w: row has no %s", domain.ErrParse, colKey)
	}

	row := domain.SnapshotRow{
		Key:           key,
		Reference:     h.first(record, referenceColumns),
		Proposal:      h.value(record, colProposal),
		Status:        h.value(record, colStatus),
		ReceivedDate:  domain.OptionalDate(h.value(record, colReceived)),
		ValidatedDate: domain.OptionalDate(h.value(record, colValidated)),
	}
	if row.Reference == "" {
		row.Reference = key
	}
	if row.Status == "" {
		row.Status = DefaultStatus
	}

	lat := parseCoord(h.value(record, colLatitude), 90)
	lon := parseCoord(h.value(record, colLongitude), 180)
	if lat != nil && lon != nil && (*lat != 0 || *lon != 0) {
		row.Latitude, row.Longitude = lat, lon
	}

	if obj := h.first(record, objectColumns); obj != "" {
		if f, err := strconv.ParseFloat(obj, 64); err == nil {
			row.SourceObjectID = int64(f)
		}
	}
	return row, nil
}

func parseCoord(s string, limit float64) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.Abs(f) > limit {
		return nil
	}
	return &f
}
