package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision writes an entry to the evaluation_log table.
func LogDecision(ctx context.Context, db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	var best any
	if entry.BestScore != nil {
		best = *entry.BestScore
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO evaluation_log (run_id, version_id, decision, trained_score, best_score, delta, reason, metrics_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		nullIfEmpty(entry.VersionID),
		entry.Decision,
		entry.TrainedScore,
		best,
		entry.Delta,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.MetricsJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region list-decisions
// ListDecisions returns the most recent entries, newest first.
func ListDecisions(ctx context.Context, db *sql.DB, limit int) ([]DecisionEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, run_id, version_id, decision, trained_score, best_score, delta, reason, metrics_json, created_at
		 FROM evaluation_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var version, reason, metrics sql.NullString
		var trained, best, delta sql.NullFloat64
		var created string
		if err := rows.Scan(&e.ID, &e.RunID, &version, &e.Decision, &trained, &best, &delta, &reason, &metrics, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.VersionID = version.String
		e.TrainedScore = trained.Float64
		if best.Valid {
			v := best.Float64
			e.BestScore = &v
		}
		e.Delta = delta.Float64
		e.Reason = reason.String
		e.MetricsJSON = metrics.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
