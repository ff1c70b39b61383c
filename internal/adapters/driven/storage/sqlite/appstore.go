package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
)

// applicationStore implements driven.ApplicationStore.
type applicationStore struct {
	store *Store
}

var _ driven.ApplicationStore = (*applicationStore)(nil)

const appColumns = `keyval, reference, address, agent_name, proposal, status,
	received_date, validated_date, decision_date, latitude, longitude,
	source_object_id, portal_key, needs_enrichment, enrich_attempts,
	validation_warning, last_synced_at, last_enriched_at`

// sortColumns maps sort fields to columns. Only these are ever
// interpolated into ORDER BY.
var sortColumns = map[domain.SortField]string{
	domain.SortReceived:  "received_date",
	domain.SortValidated: "validated_date",
	domain.SortDecision:  "decision_date",
}

// Get retrieves a record by key.
func (s *applicationStore) Get(ctx context.Context, key string) (*domain.Application, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+appColumns+` FROM applications WHERE keyval = ?`, key)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Insert creates a new record.
func (s *applicationStore) Insert(ctx context.Context, app *domain.Application) error {
	if app == nil || app.Key == "" {
		return domain.ErrInvalidInput
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO applications (`+appColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(keyval) DO NOTHING
	`, app.Key, app.Reference, app.Address, app.AgentName, app.Proposal, app.Status,
		dateValue(app.ReceivedDate), dateValue(app.ValidatedDate), dateValue(app.DecisionDate),
		floatValue(app.Latitude), floatValue(app.Longitude),
		app.SourceObjectID, nullString(app.PortalKey),
		boolToInt(app.NeedsEnrichment), app.EnrichAttempts,
		nullString(app.ValidationWarning),
		formatNullableTime(app.LastSyncedAt), formatNullableTime(app.LastEnrichedAt))
	if err != nil {
		return fmt.Errorf("inserting application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// ApplySnapshot writes snapshot-owned fields and the audit entry in one transaction.
func (s *applicationStore) ApplySnapshot(ctx context.Context, update domain.SnapshotUpdate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		b := update.Backfill
		res, err := tx.ExecContext(ctx, `
			UPDATE applications SET
				reference = ?,
				status = ?,
				validated_date = ?,
				last_synced_at = ?,
				proposal = CASE WHEN proposal = '' THEN ? ELSE proposal END,
				received_date = COALESCE(received_date, ?),
				latitude = COALESCE(latitude, ?),
				longitude = COALESCE(longitude, ?)
			WHERE keyval = ?
		`, update.Reference, update.Status, dateValue(update.ValidatedDate),
			formatNullableTime(update.SyncedAt),
			b.Proposal, dateValue(b.ReceivedDate), floatValue(b.Latitude), floatValue(b.Longitude),
			update.Key)
		if err != nil {
			return fmt.Errorf("updating application: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}

		if update.Transition != nil {
			return transitionTx(ctx, tx, *update.Transition)
		}
		return nil
	})
}

// ApplyEnrichment writes enrichment-owned fields and clears the backlog flag.
func (s *applicationStore) ApplyEnrichment(ctx context.Context, update domain.EnrichmentUpdate) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE applications SET
			address = ?,
			agent_name = ?,
			decision_date = COALESCE(?, decision_date),
			portal_key = COALESCE(?, portal_key),
			validation_warning = ?,
			last_enriched_at = ?,
			needs_enrichment = 0,
			enrich_attempts = 0
		WHERE keyval = ?
	`, update.Address, update.AgentName, dateValue(update.DecisionDate),
		nullString(update.PortalKey), nullString(update.ValidationWarning),
		formatNullableTime(update.EnrichedAt), update.Key)
	if err != nil {
		return fmt.Errorf("applying enrichment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordEnrichmentFailure increments the attempt counter.
func (s *applicationStore) RecordEnrichmentFailure(ctx context.Context, key string) error {
	return s.updateOne(ctx, `UPDATE applications SET enrich_attempts = enrich_attempts + 1 WHERE keyval = ?`, key)
}

// ApplyDecision patches status and decision date by key.
func (s *applicationStore) ApplyDecision(ctx context.Context, update domain.DecisionUpdate) (bool, error) {
	found := true
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE applications SET status = ?, decision_date = ? WHERE keyval = ?`,
			update.Status, update.DecisionDate.String(), update.Key)
		if err != nil {
			return fmt.Errorf("applying decision: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			found = false
			return nil
		}
		if update.Transition != nil {
			return transitionTx(ctx, tx, *update.Transition)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// MarkForEnrichment sets needs_enrichment and resets the attempt counter.
func (s *applicationStore) MarkForEnrichment(ctx context.Context, key string) error {
	return s.updateOne(ctx, `UPDATE applications SET needs_enrichment = 1, enrich_attempts = 0 WHERE keyval = ?`, key)
}

// ListNeedingEnrichment returns the backlog, newest received first.
func (s *applicationStore) ListNeedingEnrichment(ctx context.Context, limit, maxAttempts int) ([]domain.Application, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+appColumns+`
		FROM applications
		WHERE needs_enrichment = 1 AND (? <= 0 OR enrich_attempts < ?)
		ORDER BY received_date IS NULL, received_date DESC, keyval ASC
		LIMIT ?
	`, maxAttempts, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("querying enrichment backlog: %w", err)
	}
	return collectApplications(rows)
}

// AppendAudit appends an audit entry.
func (s *applicationStore) AppendAudit(ctx context.Context, entry domain.StatusTransition) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO status_history (keyval, old_status, new_status, changed_at)
		VALUES (?, ?, ?, ?)
	`, entry.Key, entry.OldStatus, entry.NewStatus, formatTime(entry.ChangedAt))
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// AuditTrail returns audit entries for a key, most recent first.
func (s *applicationStore) AuditTrail(ctx context.Context, key string) ([]domain.StatusTransition, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, keyval, old_status, new_status, changed_at
		FROM status_history
		WHERE keyval = ?
		ORDER BY changed_at DESC, id DESC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("querying audit trail: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusTransition //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			t         domain.StatusTransition
			changedAt sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Key, &t.OldStatus, &t.NewStatus, &changedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		t.ChangedAt = parseNullableTime(changedAt)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit trail: %w", err)
	}
	return out, nil
}

// Query returns records matching the filter plus stats for the whole match set.
func (s *applicationStore) Query(ctx context.Context, filter domain.ApplicationFilter) (*domain.QueryResult, error) {
	filter = filter.Normalise()
	where, args := buildWhere(filter)

	order := "DESC"
	if filter.Ascending {
		order = "ASC"
	}
	col := sortColumns[filter.SortBy]

	q := `SELECT ` + appColumns + ` FROM applications` + where +
		` ORDER BY ` + col + ` IS NULL, ` + col + ` ` + order + `, keyval ASC LIMIT ?`
	rows, err := s.store.db.QueryContext(ctx, q, append(args, filter.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("querying applications: %w", err)
	}
	apps, err := collectApplications(rows)
	if err != nil {
		return nil, err
	}

	stats, err := s.stats(ctx, where, args)
	if err != nil {
		return nil, err
	}
	return &domain.QueryResult{Applications: apps, Stats: stats}, nil
}

// Stats returns the status breakdown for the filter.
func (s *applicationStore) Stats(ctx context.Context, filter domain.ApplicationFilter) (domain.ApplicationStats, error) {
	where, args := buildWhere(filter.Normalise())
	return s.stats(ctx, where, args)
}

func (s *applicationStore) stats(ctx context.Context, where string, args []any) (domain.ApplicationStats, error) {
	pendingIn, pendingArgs := inClause(domain.CodesInClass(domain.StatusPending))
	approvedIn, approvedArgs := inClause(domain.CodesInClass(domain.StatusApproved))
	refusedIn, refusedArgs := inClause(domain.CodesInClass(domain.StatusRefused))

	q := `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN status = '' OR status ` + pendingIn + ` THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status ` + approvedIn + ` THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status ` + refusedIn + ` THEN 1 ELSE 0 END), 0)
		FROM applications` + where

	all := make([]any, 0, len(pendingArgs)+len(approvedArgs)+len(refusedArgs)+len(args))
	all = append(all, pendingArgs...)
	all = append(all, approvedArgs...)
	all = append(all, refusedArgs...)
	all = append(all, args...)

	var st domain.ApplicationStats
	if err := s.store.db.QueryRowContext(ctx, q, all...).Scan(
		&st.Total, &st.Pending, &st.Approved, &st.Refused); err != nil {
		return domain.ApplicationStats{}, fmt.Errorf("querying stats: %w", err)
	}
	return st, nil
}

// TopAgents returns the most active agents, excluding the default agent.
func (s *applicationStore) TopAgents(ctx context.Context, limit int) ([]domain.AgentCount, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT agent_name, COUNT(*) AS n
		FROM applications
		WHERE agent_name <> '' AND agent_name <> ?
		GROUP BY agent_name
		ORDER BY n DESC, agent_name ASC
		LIMIT ?
	`, domain.DefaultAgent, limit)
	if err != nil {
		return nil, fmt.Errorf("querying agents: %w", err)
	}
	defer rows.Close()

	var out []domain.AgentCount //nolint:prealloc // size unknown from query
	for rows.Next() {
		var ac domain.AgentCount
		if err := rows.Scan(&ac.Name, &ac.Count); err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		out = append(out, ac)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating agents: %w", err)
	}
	return out, nil
}

// LastSyncedAt returns the most recent snapshot sync time, or zero.
func (s *applicationStore) LastSyncedAt(ctx context.Context) (time.Time, error) {
	var last sql.NullString
	if err := s.store.db.QueryRowContext(ctx,
		`SELECT MAX(last_synced_at) FROM applications`).Scan(&last); err != nil {
		return time.Time{}, fmt.Errorf("querying last sync: %w", err)
	}
	return parseNullableTime(last), nil
}

func (s *applicationStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *applicationStore) updateOne(ctx context.Context, query, key string) error {
	res, err := s.store.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("updating application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// transitionTx appends the audit entry and queues the record for re-enrichment.
func transitionTx(ctx context.Context, tx *sql.Tx, t domain.StatusTransition) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO status_history (keyval, old_status, new_status, changed_at)
		VALUES (?, ?, ?, ?)
	`, t.Key, t.OldStatus, t.NewStatus, formatTime(t.ChangedAt)); err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE applications SET needs_enrichment = 1, enrich_attempts = 0 WHERE keyval = ?`,
		t.Key); err != nil {
		return fmt.Errorf("queueing enrichment: %w", err)
	}
	return nil
}

// buildWhere renders the filter as a WHERE clause. The filter must be normalised.
func buildWhere(f domain.ApplicationFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if len(f.Statuses) > 0 {
		codes, pending := f.ExpandStatuses()
		var parts []string
		if len(codes) > 0 {
			in, inArgs := inClause(codes)
			parts = append(parts, "status "+in)
			args = append(args, inArgs...)
		}
		if pending {
			in, inArgs := inClause(domain.CodesInClass(domain.StatusPending))
			parts = append(parts, "status = ''", "status "+in)
			args = append(args, inArgs...)
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}

	if f.Search != "" {
		pattern := likePattern(f.Search)
		conds = append(conds, `(LOWER(proposal) LIKE ? ESCAPE '\' OR LOWER(address) LIKE ? ESCAPE '\'`+
			` OR LOWER(reference) LIKE ? ESCAPE '\' OR LOWER(keyval) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}

	if f.Agent != "" {
		conds = append(conds, `LOWER(agent_name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Agent))
	}

	if f.ReceivedFrom != nil {
		conds = append(conds, "received_date >= ?")
		args = append(args, f.ReceivedFrom.String())
	}
	if f.ReceivedTo != nil {
		conds = append(conds, "received_date <= ?")
		args = append(args, f.ReceivedTo.String())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func inClause(values []string) (string, []any) {
	if len(values) == 0 {
		return "IN (NULL)", nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return "IN (" + strings.TrimSuffix(strings.Repeat("?,", len(values)), ",") + ")", args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func collectApplications(rows *sql.Rows) ([]domain.Application, error) {
	defer rows.Close()

	var out []domain.Application //nolint:prealloc // size unknown from query
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating applications: %w", err)
	}
	return out, nil
}

func scanApplication(row rowScanner) (*domain.Application, error) {
	var (
		app                          domain.Application
		received, validated, decided sql.NullString
		lat, lon                     sql.NullFloat64
		portalKey, warning           sql.NullString
		syncedAt, enrichedAt         sql.NullString
		needsEnrichment              int
	)

	if err := row.Scan(&app.Key, &app.Reference, &app.Address, &app.AgentName,
		&app.Proposal, &app.Status, &received, &validated, &decided, &lat, &lon,
		&app.SourceObjectID, &portalKey, &needsEnrichment, &app.EnrichAttempts,
		&warning, &syncedAt, &enrichedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning application: %w", err)
	}

	app.ReceivedDate = parseDate(received)
	app.ValidatedDate = parseDate(validated)
	app.DecisionDate = parseDate(decided)
	if lat.Valid {
		app.Latitude = &lat.Float64
	}
	if lon.Valid {
		app.Longitude = &lon.Float64
	}
	app.PortalKey = portalKey.String
	app.NeedsEnrichment = needsEnrichment == 1
	app.ValidationWarning = warning.String
	app.LastSyncedAt = parseNullableTime(syncedAt)
	app.LastEnrichedAt = parseNullableTime(enrichedAt)
	return &app, nil
}

// dateValue stores dates as ISO text so they compare and sort lexically.
func dateValue(d *domain.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDate(s sql.NullString) *domain.Date {
	if !s.Valid || s.String == "" {
		return nil
	}
	return domain.OptionalDate(s.String)
}

func floatValue(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
