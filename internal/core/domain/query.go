package domain

import "strings"

// SortField selects the date column used to order query results.
type SortField string

// Sortable fields.
const (
	SortReceived  SortField = "received_date"
	SortValidated SortField = "validated_date"
	SortDecision  SortField = "decision_date"
)

// IsValid returns true if the sort field is recognised.
func (f SortField) IsValid() bool {
	switch f {
	case SortReceived, SortValidated, SortDecision:
		return true
	default:
		return false
	}
}

// Query limits.
const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 1000
)

// ApplicationFilter describes a filtered, sorted view of the store.
type ApplicationFilter struct {
	// Statuses restricts to these codes. PendingGroup expands to every
	// pending code plus records with no status. Empty or "ALL" means no filter.
	Statuses []string

	// Search matches proposal, address, reference or key (substring).
	Search string

	// Agent matches the agent name (substring).
	Agent string

	// ReceivedFrom and ReceivedTo bound the received date, inclusive.
	ReceivedFrom *Date
	ReceivedTo   *Date

	SortBy    SortField
	Ascending bool
	Limit     int
}

// Normalise applies defaults and clamps the limit.
func (f ApplicationFilter) Normalise() ApplicationFilter {
	out := f
	if !out.SortBy.IsValid() {
		out.SortBy = SortReceived
	}
	if out.Limit <= 0 {
		out.Limit = DefaultQueryLimit
	}
	if out.Limit > MaxQueryLimit {
		out.Limit = MaxQueryLimit
	}
	out.Search = strings.TrimSpace(out.Search)
	out.Agent = strings.TrimSpace(out.Agent)

	statuses := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.EqualFold(s, "ALL") {
			statuses = nil
			break
		}
		statuses = append(statuses, s)
	}
	out.Statuses = statuses
	return out
}

// ExpandStatuses splits the status filter into explicit codes and
// whether the pending group was requested.
func (f ApplicationFilter) ExpandStatuses() (codes []string, pending bool) {
	for _, s := range f.Statuses {
		if s == PendingGroup {
			pending = true
			continue
		}
		codes = append(codes, s)
	}
	return codes, pending
}

// ApplicationStats is the status breakdown for a filtered view.
type ApplicationStats struct {
	Total    int
	Approved int
	Pending  int
	Refused  int
}

// QueryResult is a page of records plus stats for the whole match set.
type QueryResult struct {
	Applications []Application
	Stats        ApplicationStats
}

// AgentCount is an agent with the number of applications they appear on.
type AgentCount struct {
	Name  string
	Count int
}

// Matches reports whether app satisfies f. The filter should already be
// normalised. Stores that cannot push the filter into a query use this.
func (f ApplicationFilter) Matches(app *Application) bool {
	if len(f.Statuses) > 0 {
		codes, pending := f.ExpandStatuses()
		ok := false
		for _, c := range codes {
			if app.Status == c {
				ok = true
				break
			}
		}
		if !ok && pending && IsPendingStatus(app.Status) {
			ok = true
		}
		if !ok {
			return false
		}
	}

	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hay := []string{app.Proposal, app.Address, app.Reference, app.Key}
		found := false
		for _, h := range hay {
			if strings.Contains(strings.ToLower(h), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Agent != "" && !strings.Contains(strings.ToLower(app.AgentName), strings.ToLower(f.Agent)) {
		return false
	}

	if f.ReceivedFrom != nil || f.ReceivedTo != nil {
		if app.ReceivedDate == nil {
			return false
		}
		if f.ReceivedFrom != nil && app.ReceivedDate.Before(*f.ReceivedFrom) {
			return false
		}
		if f.ReceivedTo != nil && f.ReceivedTo.Before(*app.ReceivedDate) {
			return false
		}
	}
	return true
}

// SortDate returns the date a record is ordered by under field.
func (app *Application) SortDate(field SortField) *Date {
	switch field {
	case SortValidated:
		return app.ValidatedDate
	case SortDecision:
		return app.DecisionDate
	default:
		return app.ReceivedDate
	}
}

// Tally adds app to the stats.
func (s *ApplicationStats) Tally(app *Application) {
	s.Total++
	switch {
	case IsPendingStatus(app.Status):
		s.Pending++
	case ClassifyStatus(app.Status) == StatusApproved:
		s.Approved++
	case ClassifyStatus(app.Status) == StatusRefused:
		s.Refused++
	}
}
