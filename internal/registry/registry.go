package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS model_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	run_id        TEXT NOT NULL,
	model_key     TEXT NOT NULL,
	version_key   TEXT NOT NULL,
	score         REAL NOT NULL,
	metrics_json  TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES model_versions(version_id)
);

CREATE TABLE IF NOT EXISTS evaluation_log (
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
);

CREATE TABLE IF NOT EXISTS active_model (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES model_versions(version_id)
);
`

// #endregion schema

// #region registry-struct
// Registry records promoted model versions and which one is in production.
type Registry struct {
	db *sql.DB
}

// #endregion registry-struct

// #region constructor
// Open opens a SQLite database and runs migrations.
func Open(dbPath string) (*Registry, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &Registry{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// DB returns the underlying *sql.DB for the decision log.
func (r *Registry) DB() *sql.DB {
	return r.db
}

// #endregion constructor

// #region promote
// Promote inserts a version and makes it active in one transaction. An
// empty VersionID is assigned; the parent is the previously active version.
func (r *Registry) Promote(ctx context.Context, v ModelVersion) (ModelVersion, error) {
	if v.VersionID == "" {
		v.VersionID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelVersion{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT version_id FROM active_model WHERE id = 1`).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ModelVersion{}, fmt.Errorf("get active: %w", err)
	}
	v.ParentID = parent.String

	_, err = tx.ExecContext(ctx,
		`INSERT INTO model_versions (version_id, parent_id, run_id, model_key, version_key, score, metrics_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, nullIfEmpty(v.ParentID), v.RunID, v.ModelKey, v.VersionKey, v.Score,
		nullIfEmpty(v.MetricsJSON), v.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return ModelVersion{}, fmt.Errorf("insert version: %w", err)
	}

	if err := setActive(ctx, tx, v.VersionID); err != nil {
		return ModelVersion{}, err
	}
	if err := tx.Commit(); err != nil {
		return ModelVersion{}, fmt.Errorf("commit: %w", err)
	}
	return v, nil
}

// #endregion promote

// #region current
// Current returns the active version, or ErrNoActiveModel.
func (r *Registry) Current(ctx context.Context) (ModelVersion, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT version_id FROM active_model WHERE id = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelVersion{}, ErrNoActiveModel
	}
	if err != nil {
		return ModelVersion{}, fmt.Errorf("get active: %w", err)
	}
	return r.Version(ctx, id)
}

// ActiveVersion returns the active version ID, or "" when nothing has been
// promoted yet.
func (r *Registry) ActiveVersion(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT version_id FROM active_model WHERE id = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active: %w", err)
	}
	return id, nil
}

// #endregion current

// #region version
const selectVersion = `SELECT version_id, parent_id, run_id, model_key, version_key, score, metrics_json, created_at FROM model_versions`

// Version retrieves a version by ID.
func (r *Registry) Version(ctx context.Context, id string) (ModelVersion, error) {
	v, err := scanVersion(r.db.QueryRowContext(ctx, selectVersion+` WHERE version_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ModelVersion{}, fmt.Errorf("%w: %s", ErrVersionNotFound, id)
	}
	if err != nil {
		return ModelVersion{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return v, nil
}

// #endregion version

// #region rollback
// Rollback points the active slot at an existing version.
func (r *Registry) Rollback(ctx context.Context, versionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM model_versions WHERE version_id = ?`, versionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
	}
	if err := setActive(ctx, tx, versionID); err != nil {
		return err
	}
	return tx.Commit()
}

// #endregion rollback

// #region list
// List returns the most recent versions, newest first.
func (r *Registry) List(ctx context.Context, limit int) ([]ModelVersion, error) {
	rows, err := r.db.QueryContext(ctx, selectVersion+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []ModelVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// #endregion list

// #region helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (ModelVersion, error) {
	var v ModelVersion
	var parent, metrics sql.NullString
	var created string
	if err := row.Scan(&v.VersionID, &parent, &v.RunID, &v.ModelKey, &v.VersionKey, &v.Score, &metrics, &created); err != nil {
		return ModelVersion{}, err
	}
	v.ParentID = parent.String
	v.MetricsJSON = metrics.String
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return v, nil
}

func setActive(ctx context.Context, tx *sql.Tx, versionID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO active_model (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		versionID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
