package opendata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

func TestNewHeader(t *testing.T) {
	h, err := NewHeader([]string{"\ufeffOBJ", " keyval ", "REFVAL"})
	require.NoError(t, err)
	assert.Equal(t, 0, h["OBJ"])
	assert.Equal(t, 1, h["KEYVAL"])

	_, err = NewHeader([]string{"REFVAL", "DCSTAT"})
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestMapRecord(t *testing.T) {
	h, err := NewHeader([]string{
		"OBJ", "KEYVAL", "REFVAL", "PROPOSAL", "DCSTAT", "DATEAPRECV", "DATEAPVAL", "LATITUDE", "LONGITUDE",
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		record []string
		want   domain.SnapshotRow
	}{
		{
			name:   "full row",
			record: []string{"12", "QX1", "26/00001/FUL", "Rear extension", "PCO", "2026/01/10 00:00:00+00", "2026-01-12", "53.96", "-1.08"},
			want: domain.SnapshotRow{
				Key:            "QX1",
				Reference:      "26/00001/FUL",
				Proposal:       "Rear extension",
				Status:         "PCO",
				ReceivedDate:   &domain.Date{Year: 2026, Month: 1, Day: 10},
				ValidatedDate:  &domain.Date{Year: 2026, Month: 1, Day: 12},
				Latitude:       ptr(53.96),
				Longitude:      ptr(-1.08),
				SourceObjectID: 12,
			},
		},
		{
			name:   "defaults",
			record: []string{"", " QX2 ", "", "", "", "not a date", "", "0", "0"},
			want: domain.SnapshotRow{
				Key:       "QX2",
				Reference: "QX2",
				Status:    DefaultStatus,
			},
		},
		{
			name:   "short record",
			record: []string{"3", "QX3"},
			want:   domain.SnapshotRow{Key: "QX3", Reference: "QX3", Status: DefaultStatus, SourceObjectID: 3},
		},
		{
			name:   "out of range coordinates",
			record: []string{"", "QX4", "R4", "", "HAPP", "", "", "99", "1"},
			want:   domain.SnapshotRow{Key: "QX4", Reference: "R4", Status: "HAPP"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapRecord(h, tt.record)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapRecord_ReferenceFallbackColumns(t *testing.T) {
	h, err := NewHeader([]string{"KEYVAL", "REF"})
	require.NoError(t, err)

	row, err := MapRecord(h, []string{"QX1", "26/00009/LBC"})
	require.NoError(t, err)
	assert.Equal(t, "26/00009/LBC", row.Reference)
}

func TestMapRecord_BlankKeyRejected(t *testing.T) {
	h, err := NewHeader([]string{"KEYVAL", "DCSTAT"})
	require.NoError(t, err)

	_, err = MapRecord(h, []string{"  ", "HAPP"})
	assert.ErrorIs(t, err, domain.ErrParse)
}

func ptr(f float64) *float64 { return &f }
