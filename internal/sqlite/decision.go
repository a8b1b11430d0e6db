package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/loomhq/loom/internal/domain/decision"
	"github.com/loomhq/loom/internal/repository"
)

// DecisionRepository implements decision.Repository for SQLite
type DecisionRepository struct {
	db *DB
}

// NewDecisionRepository creates a new DecisionRepository
func NewDecisionRepository(db *DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Record inserts a decision row
func (r *DecisionRepository) Record(ctx context.Context, tenantID string, d *decision.Decision) error {
	subjects, err := json.Marshal(d.SubjectActivityIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal subject activity ids: %w", err)
	}

	query := `
		INSERT INTO decisions (
			id, tenant_id, kind, source, subject_activity_ids,
			channel_id, channel_name, thread_id,
			target_item_id, target_identifier, title, body,
			to_state_name, to_state_type, confidence, rationale,
			auto_apply, proposed_at, outcome, applied_at, failure_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		d.ID,
		tenantID,
		d.Kind,
		d.Source,
		string(subjects),
		d.ChannelID,
		d.ChannelName,
		d.ThreadID,
		d.TargetItemID,
		d.TargetIdentifier,
		d.Title,
		d.Body,
		d.ToStateName,
		d.ToStateType,
		d.Confidence,
		d.Rationale,
		d.AutoApply,
		d.ProposedAt,
		d.Outcome,
		d.AppliedAt,
		d.FailureReason,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to record decision: %w", err)
	}

	return nil
}

// Get retrieves a decision by ID
func (r *DecisionRepository) Get(ctx context.Context, tenantID, id string) (*decision.Decision, error) {
	query := selectDecision + ` WHERE tenant_id = ? AND id = ?`

	d, err := scanDecision(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}

	return d, nil
}

// Finalize moves a pending decision to its terminal outcome. The guard on
// outcome = 'pending' makes the transition happen at most once; losers see
// ErrAlreadyFinalized and must not act on the decision.
func (r *DecisionRepository) Finalize(ctx context.Context, tenantID, id string, outcome decision.Outcome, appliedAt *time.Time, reason string) error {
	query := `
		UPDATE decisions
		SET outcome = ?, applied_at = ?, failure_reason = ?
		WHERE tenant_id = ? AND id = ? AND outcome = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, outcome, appliedAt, reason, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to finalize decision: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM decisions WHERE tenant_id = ? AND id = ?)`
		if err := r.db.QueryRowContext(ctx, checkQuery, tenantID, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check decision existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrAlreadyFinalized
	}

	return nil
}

// List returns decisions matching the given options, newest first
func (r *DecisionRepository) List(ctx context.Context, tenantID string, opts decision.ListOptions) ([]decision.Decision, error) {
	query := selectDecision + ` WHERE tenant_id = ?`
	args := []interface{}{tenantID}

	if len(opts.Kinds) > 0 {
		placeholders := make([]string, len(opts.Kinds))
		for i, kind := range opts.Kinds {
			placeholders[i] = "?"
			args = append(args, kind)
		}
		query += fmt.Sprintf(" AND kind IN (%s)", strings.Join(placeholders, ","))
	}

	if len(opts.Outcomes) > 0 {
		placeholders := make([]string, len(opts.Outcomes))
		for i, outcome := range opts.Outcomes {
			placeholders[i] = "?"
			args = append(args, outcome)
		}
		query += fmt.Sprintf(" AND outcome IN (%s)", strings.Join(placeholders, ","))
	}

	if !opts.Since.IsZero() {
		query += " AND proposed_at >= ?"
		args = append(args, opts.Since)
	}

	query += " ORDER BY proposed_at DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []decision.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, *d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decision rows: %w", err)
	}

	return decisions, nil
}

// CountAppliedByKind counts applied decisions per kind since the given instant
func (r *DecisionRepository) CountAppliedByKind(ctx context.Context, tenantID string, since time.Time) (map[decision.Kind]int, error) {
	query := `
		SELECT kind, COUNT(*)
		FROM decisions
		WHERE tenant_id = ? AND outcome = 'applied' AND proposed_at >= ?
		GROUP BY kind
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[decision.Kind]int)
	for rows.Next() {
		var kind decision.Kind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan decision count: %w", err)
		}
		counts[kind] = count
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count rows: %w", err)
	}

	return counts, nil
}

const selectDecision = `
	SELECT id, tenant_id, kind, source, subject_activity_ids,
	       channel_id, channel_name, thread_id,
	       target_item_id, target_identifier, title, body,
	       to_state_name, to_state_type, confidence, rationale,
	       auto_apply, proposed_at, outcome, applied_at, failure_reason
	FROM decisions
`

func scanDecision(row rowScanner) (*decision.Decision, error) {
	var d decision.Decision
	var subjects string
	var channelID, channelName, threadID sql.NullString
	var targetItemID, targetIdentifier, title, body sql.NullString
	var toStateName, toStateType, failureReason sql.NullString
	var appliedAt sql.NullTime
	err := row.Scan(
		&d.ID,
		&d.TenantID,
		&d.Kind,
		&d.Source,
		&subjects,
		&channelID,
		&channelName,
		&threadID,
		&targetItemID,
		&targetIdentifier,
		&title,
		&body,
		&toStateName,
		&toStateType,
		&d.Confidence,
		&d.Rationale,
		&d.AutoApply,
		&d.ProposedAt,
		&d.Outcome,
		&appliedAt,
		&failureReason,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(subjects), &d.SubjectActivityIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subject activity ids: %w", err)
	}
	d.ChannelID = channelID.String
	d.ChannelName = channelName.String
	d.ThreadID = threadID.String
	if targetItemID.Valid {
		d.TargetItemID = &targetItemID.String
	}
	d.TargetIdentifier = targetIdentifier.String
	d.Title = title.String
	d.Body = body.String
	d.ToStateName = toStateName.String
	d.ToStateType = toStateType.String
	if appliedAt.Valid {
		d.AppliedAt = &appliedAt.Time
	}
	d.FailureReason = failureReason.String

	return &d, nil
}
