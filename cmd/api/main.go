package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/mediavault/internal/access"
	"github.com/abduss/mediavault/internal/auth"
	"github.com/abduss/mediavault/internal/blobstore"
	"github.com/abduss/mediavault/internal/bucket"
	"github.com/abduss/mediavault/internal/config"
	"github.com/abduss/mediavault/internal/export"
	"github.com/abduss/mediavault/internal/grant"
	"github.com/abduss/mediavault/internal/janitor"
	"github.com/abduss/mediavault/internal/logger"
	"github.com/abduss/mediavault/internal/resource"
	"github.com/abduss/mediavault/internal/server"
	"github.com/abduss/mediavault/internal/storage"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logg.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	minioCore, err := storage.NewMinIOCore(cfg.MinIO)
	if err != nil {
		logg.Fatal("connect minio", zap.Error(err))
	}

	store := blobstore.New(minioCore)

	grantRepo := grant.NewRepository(dbPool)
	gate := access.NewGate(cfg.Auth.AccessTokenSecret, grantRepo)

	authRepo := auth.NewRepository(dbPool)
	authService := auth.NewService(authRepo, cfg.Auth)

	bucketManager := bucket.NewManager(store, grantRepo, logg)
	resourceService := resource.NewService(store, gate)
	exportPipeline := export.NewPipeline(store, resourceService,
		cfg.Staging.Root, cfg.Archive.CompressionLevel, logg)

	sweeper := janitor.New(cfg.Staging.Root, cfg.Staging.Retention, logg)
	cronRunner := cron.New()
	if _, err := sweeper.Schedule(cronRunner, cfg.Staging.SweepSchedule); err != nil {
		logg.Fatal("schedule staging sweep", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	router := server.NewRouter(server.Dependencies{
		Config:          cfg,
		DB:              dbPool,
		ObjectStore:     minioCore.Client,
		Gate:            gate,
		AuthService:     authService,
		GrantRepo:       grantRepo,
		BucketManager:   bucketManager,
		ResourceService: resourceService,
		ExportPipeline:  exportPipeline,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("MediaVault API listening", zap.String("address", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
}
