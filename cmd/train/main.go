package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/churn-service/internal/app"
	"github.com/danielpatrickdp/churn-service/internal/config"
	"github.com/danielpatrickdp/churn-service/internal/logging"
	"github.com/danielpatrickdp/churn-service/internal/orchestrator"
)

// #region main
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	a, err := app.Build(cfg, logger)
	if err != nil {
		logger.Fatal("wire service", zap.Error(err))
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.Train(ctx)
	if err != nil {
		var se *orchestrator.StageError
		if errors.As(err, &se) {
			logger.Error("training failed", zap.String("stage", string(se.Stage)), zap.String("run_id", res.RunID), zap.Error(se.Err))
		} else {
			logger.Error("training failed", zap.Error(err))
		}
		a.Close()
		os.Exit(1)
	}

	fields := []zap.Field{
		zap.String("run_id", res.RunID),
		zap.String("state", string(res.State)),
		zap.String("artifact_dir", res.ArtifactDir),
		zap.Float64("accuracy", res.Metrics.Accuracy),
	}
	if res.Version != nil {
		fields = append(fields, zap.String("version_id", res.Version.VersionID))
	}
	logger.Info("training complete", fields...)
}

// #endregion main
