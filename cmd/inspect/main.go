package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/churn-service/internal/app"
	"github.com/danielpatrickdp/churn-service/internal/config"
	"github.com/danielpatrickdp/churn-service/internal/logging"
	"github.com/danielpatrickdp/churn-service/internal/registry"
)

// #region main

func main() {
	if err := loadDotenv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	dbPath := flag.String("db", cfg.RegistryPath, "path to the model registry database")
	last := flag.Int("last", 20, "show N most recent versions or decisions")
	version := flag.String("version", "", "show single version detail")
	decisions := flag.Bool("decisions", false, "list the evaluation decision log instead of versions")
	rollback := flag.String("rollback", "", "restore this version to the production key")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()
	cfg.RegistryPath = *dbPath

	if *rollback != "" {
		if err := runRollback(cfg, *rollback, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer reg.Close()

	ctx := context.Background()
	switch {
	case *version != "":
		err = runDetailMode(ctx, reg, *version, *jsonOut)
	case *decisions:
		err = runDecisionsMode(ctx, reg, *last, *jsonOut)
	default:
		err = runListMode(ctx, reg, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID string  `json:"version_id"`
	ParentID  string  `json:"parent_id,omitempty"`
	Active    bool    `json:"active"`
	Score     float64 `json:"score"`
	RunID     string  `json:"run_id"`
	CreatedAt string  `json:"created_at"`
}

func runListMode(ctx context.Context, reg *registry.Registry, last int, jsonOut bool) error {
	versions, err := reg.List(ctx, last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no versions found")
		return nil
	}
	active, err := reg.Current(ctx)
	if err != nil && !errors.Is(err, registry.ErrNoActiveModel) {
		return err
	}

	// registry returns newest first; print chronologically
	rows := make([]listRow, len(versions))
	for i, v := range versions {
		rows[len(versions)-1-i] = listRow{
			VersionID: v.VersionID,
			ParentID:  v.ParentID,
			Active:    v.VersionID == active.VersionID,
			Score:     v.Score,
			RunID:     v.RunID,
			CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-10s  %-10s  %6s  %-6s  %s\n", "Version", "Parent", "Score", "Active", "Time")
	fmt.Printf("%-10s+-%-10s+-%6s+-%-6s+-%s\n", "----------", "----------", "------", "------", "--------------------")
	for _, r := range rows {
		mark := ""
		if r.Active {
			mark = "*"
		}
		fmt.Printf("%-10s  %-10s  %6.4f  %-6s  %s\n", shortID(r.VersionID), shortID(r.ParentID), r.Score, mark, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(ctx context.Context, reg *registry.Registry, versionID string, jsonOut bool) error {
	v, err := reg.Version(ctx, versionID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(v)
	}

	fmt.Printf("Version:    %s\n", v.VersionID)
	fmt.Printf("Parent:     %s\n", v.ParentID)
	fmt.Printf("Run:        %s\n", v.RunID)
	fmt.Printf("Created:    %s\n", v.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Model key:  %s\n", v.ModelKey)
	fmt.Printf("Stored at:  %s\n", v.VersionKey)
	fmt.Printf("Score:      %.4f\n", v.Score)
	if v.MetricsJSON != "" {
		fmt.Printf("\nMetrics:\n  %s\n", v.MetricsJSON)
	}
	return nil
}

// #endregion detail-mode

// #region decisions-mode

func runDecisionsMode(ctx context.Context, reg *registry.Registry, last int, jsonOut bool) error {
	entries, err := logging.ListDecisions(ctx, reg.DB(), last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(entries)
	}
	fmt.Printf("%-10s  %-9s  %7s  %7s  %8s  %s\n", "Run", "Decision", "Trained", "Best", "Delta", "Reason")
	for _, e := range entries {
		best := "-"
		if e.BestScore != nil {
			best = fmt.Sprintf("%.4f", *e.BestScore)
		}
		fmt.Printf("%-10s  %-9s  %7.4f  %7s  %+8.4f  %s\n", shortID(e.RunID), e.Decision, e.TrainedScore, best, e.Delta, e.Reason)
	}
	return nil
}

// #endregion decisions-mode

// #region rollback

func runRollback(cfg config.Config, versionID string, jsonOut bool) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := app.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := a.Pipeline.Rollback(context.Background(), versionID)
	if err != nil {
		return err
	}
	logger.Info("rollback complete", zap.String("version_id", v.VersionID), zap.String("model_key", v.ModelKey))
	if jsonOut {
		return printJSON(v)
	}
	fmt.Printf("Active version is now %s (score %.4f)\n", v.VersionID, v.Score)
	return nil
}

// #endregion rollback

// #region output

// loadDotenv reads .env (or the given files); a missing file is not an error.
func loadDotenv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
