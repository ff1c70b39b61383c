package domain

import "time"

// Sentinel values stored when the portal offers no data for a field.
const (
	// DefaultAgent is used when the portal lists no agent company.
	DefaultAgent = "Independent"

	// DefaultAddress is used when the portal lists no site address.
	DefaultAddress = "Address not available"
)

// Application is one tracked planning case.
//
// Field ownership is partitioned by writer:
//   - snapshot (reconciler): Reference, Proposal, Status, ReceivedDate, ValidatedDate, coordinates
//   - decision sync: Status, DecisionDate
//   - enrichment: Address, AgentName, DecisionDate, PortalKey, ValidationWarning
type Application struct {
	// Key is the portal's opaque identifier. Immutable.
	Key string

	// Reference is the human-readable case number.
	Reference string

	// Address is the site address, populated by enrichment.
	Address string

	// AgentName is the agent company, populated by enrichment.
	AgentName string

	// Proposal is the descriptive text from the snapshot.
	Proposal string

	// Status is the authority's status code (e.g. "HAPP", "REF", "Pending").
	Status string

	ReceivedDate  *Date
	ValidatedDate *Date
	DecisionDate  *Date

	Latitude  *float64
	Longitude *float64

	// SourceObjectID is the open-data feed's row identifier.
	SourceObjectID int64

	// PortalKey is an alternate key discovered when Key no longer resolves
	// on the portal. Once set it is never cleared.
	PortalKey string

	// NeedsEnrichment marks membership of the enrichment backlog.
	NeedsEnrichment bool

	// EnrichAttempts counts consecutive failed enrichment fetches.
	EnrichAttempts int

	LastSyncedAt   time.Time
	LastEnrichedAt time.Time

	// ValidationWarning is set when the portal status contradicts Status.
	ValidationWarning string
}

// ActiveKey returns the key to use for portal requests.
func (a *Application) ActiveKey() string {
	if a.PortalKey != "" {
		return a.PortalKey
	}
	return a.Key
}

// DisplayReference returns the reference, falling back to the key.
func (a *Application) DisplayReference() string {
	if a.Reference != "" {
		return a.Reference
	}
	return a.Key
}

// StatusTransition is an immutable audit entry for a detected status change.
type StatusTransition struct {
	ID        int64
	Key       string
	OldStatus string
	NewStatus string
	ChangedAt time.Time
}

// SnapshotRow is one typed row of the open-data snapshot after schema mapping.
type SnapshotRow struct {
	Key            string
	Reference      string
	Proposal       string
	Status         string
	ReceivedDate   *Date
	ValidatedDate  *Date
	Latitude       *float64
	Longitude      *float64
	SourceObjectID int64
}

// SnapshotUpdate carries the snapshot-owned fields written for an existing record.
type SnapshotUpdate struct {
	Key           string
	Reference     string
	Status        string
	ValidatedDate *Date
	SyncedAt      time.Time

	// Transition is appended to the audit log in the same transaction
	// when the status changed. Nil otherwise.
	Transition *StatusTransition

	// Backfill holds fields that are only written when the stored value is empty.
	Backfill SnapshotBackfill
}

// SnapshotBackfill holds snapshot fields that fill gaps but never overwrite.
type SnapshotBackfill struct {
	Proposal     string
	ReceivedDate *Date
	Latitude     *float64
	Longitude    *float64
}

// DetailResult is the outcome of fetching a record's portal pages.
type DetailResult struct {
	Address       string
	Agent         string
	DecisionDate  *Date
	ScrapedStatus string

	// PortalKey is set when the key had to be healed via the reference search.
	PortalKey string

	Success bool
	Error   string
}

// EnrichmentUpdate is applied atomically to a record after a successful fetch.
type EnrichmentUpdate struct {
	Key               string
	Address           string
	AgentName         string
	DecisionDate      *Date
	PortalKey         string
	ValidationWarning string
	EnrichedAt        time.Time
}

// DecisionResult is one item from the portal's decision search.
type DecisionResult struct {
	Key          string
	Reference    string
	Address      string
	Status       string
	DecisionText string
}

// DecisionUpdate patches status and decision date for a key.
type DecisionUpdate struct {
	Key          string
	Status       string
	DecisionDate Date
	Transition   *StatusTransition
}
