package logging

import "time"

// #region decision
// Decision values written to evaluation_log.
const (
	DecisionPromoted = "promoted"
	DecisionRejected = "rejected"
	DecisionFailed   = "failed"
	DecisionRollback = "rollback"
)

// DecisionEntry is a single row in the evaluation_log table.
type DecisionEntry struct {
	ID           int64
	RunID        string
	VersionID    string // set for promotions and rollbacks
	Decision     string
	TrainedScore float64
	BestScore    *float64 // nil when no production model existed
	Delta        float64
	Reason       string
	MetricsJSON  string
	CreatedAt    time.Time
}

// #endregion decision
