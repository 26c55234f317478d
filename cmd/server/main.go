package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/churn-service/internal/app"
	"github.com/danielpatrickdp/churn-service/internal/config"
	"github.com/danielpatrickdp/churn-service/internal/logging"
	"github.com/danielpatrickdp/churn-service/internal/rpc"
	"github.com/danielpatrickdp/churn-service/internal/server"
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

	e := server.BuildServer(server.Deps{
		Schema:    a.Schema,
		Trainer:   a,
		Predictor: a.Prediction,
		Metrics:   a.Metrics,
		Logger:    logger,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen grpc", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}
	grpcServer := rpc.NewServer(rpc.NewService(a.Schema, a.Prediction, a.Metrics), logger)

	go func() {
		logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server stopped", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
}

// #endregion main
