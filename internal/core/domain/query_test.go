package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplicationFilter_Normalise(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		f := ApplicationFilter{}.Normalise()

		assert.Equal(t, SortReceived, f.SortBy)
		assert.Equal(t, DefaultQueryLimit, f.Limit)
		assert.Empty(t, f.Statuses)
	})

	t.Run("clamps limit", func(t *testing.T) {
		f := ApplicationFilter{Limit: 50000}.Normalise()
		assert.Equal(t, MaxQueryLimit, f.Limit)
	})

	t.Run("rejects unknown sort field", func(t *testing.T) {
		f := ApplicationFilter{SortBy: "proposal; DROP TABLE"}.Normalise()
		assert.Equal(t, SortReceived, f.SortBy)
	})

	t.Run("ALL clears status filter", func(t *testing.T) {
		f := ApplicationFilter{Statuses: []string{"HAPP", "all"}}.Normalise()
		assert.Empty(t, f.Statuses)
	})

	t.Run("drops blank statuses and trims text", func(t *testing.T) {
		f := ApplicationFilter{Statuses: []string{" ", "REF"}, Search: "  barn ", Agent: " Acme "}.Normalise()
		assert.Equal(t, []string{"REF"}, f.Statuses)
		assert.Equal(t, "barn", f.Search)
		assert.Equal(t, "Acme", f.Agent)
	})
}

func TestApplicationFilter_ExpandStatuses(t *testing.T) {
	codes, pending := ApplicationFilter{Statuses: []string{"HAPP", PendingGroup, "REF"}}.ExpandStatuses()

	assert.Equal(t, []string{"HAPP", "REF"}, codes)
	assert.True(t, pending)
}

func TestApplication_ActiveKey(t *testing.T) {
	app := Application{Key: "K1"}
	assert.Equal(t, "K1", app.ActiveKey())
	assert.Equal(t, "K1", app.DisplayReference())

	app.PortalKey = "K1B"
	app.Reference = "24/00001/FUL"
	assert.Equal(t, "K1B", app.ActiveKey())
	assert.Equal(t, "24/00001/FUL", app.DisplayReference())
}

func TestApplicationFilter_Matches(t *testing.T) {
	received := Date{Year: 2026, Month: 2, Day: 4}
	app := &Application{
		Key:          "K1",
		Reference:    "26/00123/FUL",
		Proposal:     "Two storey rear extension",
		Address:      "1 Main Street, York",
		AgentName:    "Smith Architects",
		Status:       "PCO",
		ReceivedDate: &received,
	}

	tests := []struct {
		name   string
		filter ApplicationFilter
		want   bool
	}{
		{"empty filter", ApplicationFilter{}, true},
		{"exact code", ApplicationFilter{Statuses: []string{"PCO"}}, true},
		{"other code", ApplicationFilter{Statuses: []string{"HAPP"}}, false},
		{"pending group", ApplicationFilter{Statuses: []string{PendingGroup}}, true},
		{"search proposal", ApplicationFilter{Search: "rear EXT"}, true},
		{"search reference", ApplicationFilter{Search: "00123"}, true},
		{"search miss", ApplicationFilter{Search: "garage"}, false},
		{"agent", ApplicationFilter{Agent: "smith"}, true},
		{"agent miss", ApplicationFilter{Agent: "jones"}, false},
		{"in range", ApplicationFilter{ReceivedFrom: &Date{2026, 2, 1}, ReceivedTo: &Date{2026, 2, 4}}, true},
		{"before range", ApplicationFilter{ReceivedFrom: &Date{2026, 2, 5}}, false},
		{"after range", ApplicationFilter{ReceivedTo: &Date{2026, 2, 3}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Normalise().Matches(app))
		})
	}

	t.Run("date bound excludes undated records", func(t *testing.T) {
		undated := &Application{Key: "K2"}
		f := ApplicationFilter{ReceivedFrom: &Date{2026, 1, 1}}.Normalise()
		assert.False(t, f.Matches(undated))
	})

	t.Run("pending group includes empty status", func(t *testing.T) {
		f := ApplicationFilter{Statuses: []string{PendingGroup}}.Normalise()
		assert.True(t, f.Matches(&Application{Key: "K3"}))
	})
}

func TestApplicationStats_Tally(t *testing.T) {
	var stats ApplicationStats
	for _, status := range []string{"HAPP", "PER", "REF", "PCO", "", "RECV"} {
		stats.Tally(&Application{Status: status})
	}

	assert.Equal(t, ApplicationStats{Total: 6, Approved: 2, Pending: 2, Refused: 1}, stats)
}

func TestApplication_SortDate(t *testing.T) {
	r, v, d := Date{2026, 1, 1}, Date{2026, 1, 2}, Date{2026, 1, 3}
	app := &Application{ReceivedDate: &r, ValidatedDate: &v, DecisionDate: &d}

	assert.Equal(t, &r, app.SortDate(SortReceived))
	assert.Equal(t, &v, app.SortDate(SortValidated))
	assert.Equal(t, &d, app.SortDate(SortDecision))
}
