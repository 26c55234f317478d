package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestCurrentWithoutPromotion(t *testing.T) {
	r := tempRegistry(t)

	_, err := r.Current(context.Background())
	if !errors.Is(err, ErrNoActiveModel) {
		t.Fatalf("expected ErrNoActiveModel, got %v", err)
	}
}

func TestActiveVersionFollowsPointer(t *testing.T) {
	r := tempRegistry(t)
	ctx := context.Background()

	id, err := r.ActiveVersion(ctx)
	if err != nil || id != "" {
		t.Fatalf("ActiveVersion before promotion = %q, %v", id, err)
	}

	v1, err := r.Promote(ctx, ModelVersion{RunID: "run-1", ModelKey: "model.gob", VersionKey: "versions/a/model.gob", Score: 0.7})
	if err != nil {
		t.Fatalf("Promote v1: %v", err)
	}
	v2, err := r.Promote(ctx, ModelVersion{RunID: "run-2", ModelKey: "model.gob", VersionKey: "versions/b/model.gob", Score: 0.8})
	if err != nil {
		t.Fatalf("Promote v2: %v", err)
	}
	if id, _ := r.ActiveVersion(ctx); id != v2.VersionID {
		t.Fatalf("ActiveVersion = %q, want %q", id, v2.VersionID)
	}
	if err := r.Rollback(ctx, v1.VersionID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if id, _ := r.ActiveVersion(ctx); id != v1.VersionID {
		t.Fatalf("ActiveVersion after rollback = %q, want %q", id, v1.VersionID)
	}
}

func TestPromoteChainsParents(t *testing.T) {
	r := tempRegistry(t)
	ctx := context.Background()

	v1, err := r.Promote(ctx, ModelVersion{RunID: "run-1", ModelKey: "model.gob", VersionKey: "versions/a/model.gob", Score: 0.75})
	if err != nil {
		t.Fatalf("Promote v1: %v", err)
	}
	if v1.VersionID == "" {
		t.Fatal("expected assigned version ID")
	}
	if v1.ParentID != "" {
		t.Fatalf("expected no parent, got %s", v1.ParentID)
	}

	v2, err := r.Promote(ctx, ModelVersion{
		RunID:       "run-2",
		ModelKey:    "model.gob",
		VersionKey:  "versions/b/model.gob",
		Score:       0.81,
		MetricsJSON: `{"f1":0.7}`,
	})
	if err != nil {
		t.Fatalf("Promote v2: %v", err)
	}
	if v2.ParentID != v1.VersionID {
		t.Fatalf("expected parent %s, got %s", v1.VersionID, v2.ParentID)
	}

	cur, err := r.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.VersionID != v2.VersionID {
		t.Fatalf("expected %s, got %s", v2.VersionID, cur.VersionID)
	}
	if cur.Score != 0.81 || cur.MetricsJSON != `{"f1":0.7}` || cur.RunID != "run-2" {
		t.Fatalf("unexpected round trip: %+v", cur)
	}
}

func TestRollback(t *testing.T) {
	r := tempRegistry(t)
	ctx := context.Background()

	v1, _ := r.Promote(ctx, ModelVersion{RunID: "r1", ModelKey: "m", VersionKey: "versions/1/m", Score: 0.7})
	r.Promote(ctx, ModelVersion{RunID: "r2", ModelKey: "m", VersionKey: "versions/2/m", Score: 0.8})

	if err := r.Rollback(ctx, v1.VersionID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	cur, _ := r.Current(ctx)
	if cur.VersionID != v1.VersionID {
		t.Fatalf("expected %s after rollback, got %s", v1.VersionID, cur.VersionID)
	}
}

func TestRollbackNonExistent(t *testing.T) {
	r := tempRegistry(t)

	err := r.Rollback(context.Background(), "nonexistent-id")
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	r := tempRegistry(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		_, err := r.Promote(ctx, ModelVersion{
			VersionID: id, RunID: id, ModelKey: "m", VersionKey: "versions/" + id + "/m",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Promote %s: %v", id, err)
		}
	}

	versions, err := r.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].VersionID != "c" || versions[1].VersionID != "b" {
		t.Fatalf("unexpected order: %s, %s", versions[0].VersionID, versions[1].VersionID)
	}
	if !versions[0].CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("created_at did not round-trip: %v", versions[0].CreatedAt)
	}
}

func TestVersionNotFound(t *testing.T) {
	r := tempRegistry(t)

	_, err := r.Version(context.Background(), "missing")
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestOpenInvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "registry.db"))
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestDBAccessor(t *testing.T) {
	r := tempRegistry(t)
	if r.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}
