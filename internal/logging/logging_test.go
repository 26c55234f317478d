package logging

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE evaluation_log (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id        TEXT NOT NULL,
		version_id    TEXT,
		decision      TEXT NOT NULL,
		trained_score REAL,
		best_score    REAL,
		delta         REAL,
		reason        TEXT,
		metrics_json  TEXT,
		created_at    TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Promoted(t *testing.T) {
	db := setupDB(t)
	best := 0.78

	entry := DecisionEntry{
		RunID:        "run-1",
		VersionID:    "v1",
		Decision:     DecisionPromoted,
		TrainedScore: 0.81,
		BestScore:    &best,
		Delta:        0.03,
		Reason:       "trained beats best",
		MetricsJSON:  `{"trained_f1":0.6}`,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogDecision(context.Background(), db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ListDecisions(context.Background(), db, 10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	e := got[0]
	if e.VersionID != "v1" || e.Decision != DecisionPromoted {
		t.Errorf("unexpected row: %+v", e)
	}
	if e.BestScore == nil || *e.BestScore != 0.78 {
		t.Errorf("expected best score 0.78, got %v", e.BestScore)
	}
	if !e.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("created_at did not round-trip: %v", e.CreatedAt)
	}
}

func TestLogDecision_NoProductionModel(t *testing.T) {
	db := setupDB(t)

	entry := DecisionEntry{RunID: "run-2", Decision: DecisionRejected, TrainedScore: 0.5}
	before := time.Now().UTC()
	if err := LogDecision(context.Background(), db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var version, best sql.NullString
	var createdAtStr string
	db.QueryRow("SELECT version_id, best_score, created_at FROM evaluation_log").Scan(&version, &best, &createdAtStr)
	if version.Valid || best.Valid {
		t.Errorf("expected NULL version_id and best_score, got %v %v", version, best)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestListDecisions_NewestFirst(t *testing.T) {
	db := setupDB(t)
	for _, d := range []string{DecisionRejected, DecisionPromoted, DecisionRollback} {
		if err := LogDecision(context.Background(), db, DecisionEntry{RunID: "r", Decision: d}); err != nil {
			t.Fatalf("LogDecision: %v", err)
		}
	}

	got, err := ListDecisions(context.Background(), db, 2)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 2 || got[0].Decision != DecisionRollback || got[1].Decision != DecisionPromoted {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestLogDecision_ClosedDB(t *testing.T) {
	db := setupDB(t)
	db.Close()

	if err := LogDecision(context.Background(), db, DecisionEntry{RunID: "r", Decision: DecisionFailed}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-decision-tests

// #region logger-tests
func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		logger, err := New("debug", format)
		if err != nil {
			t.Fatalf("New(%q): %v", format, err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("format %q: expected debug enabled", format)
		}
	}
}

func TestNewLoggerRejectsBadInput(t *testing.T) {
	if _, err := New("loud", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

// #endregion logger-tests

// #region null-if-empty-tests
func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("expected nil for empty string")
	}
	if nullIfEmpty("hello") != "hello" {
		t.Error("expected passthrough for non-empty string")
	}
}

// #endregion null-if-empty-tests
