package registry

import (
	"errors"
	"time"
)

var (
	ErrNoActiveModel   = errors.New("no active model")
	ErrVersionNotFound = errors.New("model version not found")
)

// #region model-version
// ModelVersion is one promoted model. ModelKey is the production key it
// was served under; VersionKey is the immutable copy used for rollback.
type ModelVersion struct {
	VersionID   string
	ParentID    string
	RunID       string
	ModelKey    string
	VersionKey  string
	Score       float64
	MetricsJSON string
	CreatedAt   time.Time
}

// #endregion model-version
