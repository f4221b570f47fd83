package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mailbridge/internal/handler"
	"github.com/noah-isme/mailbridge/internal/remote"
	"github.com/noah-isme/mailbridge/internal/repository"
	"github.com/noah-isme/mailbridge/internal/service"
	"github.com/noah-isme/mailbridge/internal/source"
	"github.com/noah-isme/mailbridge/pkg/cache"
	"github.com/noah-isme/mailbridge/pkg/config"
	"github.com/noah-isme/mailbridge/pkg/export"
	"github.com/noah-isme/mailbridge/pkg/jobs"
	"github.com/noah-isme/mailbridge/pkg/logger"
	corsmiddleware "github.com/noah-isme/mailbridge/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mailbridge/pkg/middleware/requestid"
	"github.com/noah-isme/mailbridge/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.NewLocalStorage(cfg.State.DataDir)
	if err != nil {
		logr.Sugar().Fatalw("data dir init failed", "dir", cfg.State.DataDir, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Remote adapters are optional: the bridge keeps classifying and writing
	// state locally when either side is not configured.
	var docs service.DocumentStore
	var fsStore *remote.FirestoreStore
	if cfg.Firestore.ProjectID != "" {
		fsStore, err = remote.NewFirestoreStore(ctx, cfg.Firestore, logr)
		if err != nil {
			logr.Sugar().Fatalw("firestore init failed", "error", err)
		}
		docs = fsStore
	} else {
		logr.Sugar().Warnw("firestore disabled, running without document mirroring")
	}

	var objects service.ObjectStore
	var folders service.FolderSetter
	if cfg.Drive.CredentialsFile != "" {
		driveStore, err := remote.NewDriveStore(ctx, cfg.Drive, logr)
		if err != nil {
			logr.Sugar().Fatalw("drive init failed", "error", err)
		}
		objects = driveStore
		folders = driveStore
	} else {
		logr.Sugar().Warnw("drive disabled, running without uploads")
	}

	var stateRepo service.StateStore
	if cfg.State.Backend == config.StateBackendRedis {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, falling back to file state", "error", err)
		} else {
			stateRepo = repository.NewRedisStateRepository(client, cfg.Redis.StateKey, logr)
		}
	}
	if stateRepo == nil {
		stateRepo = repository.NewFileStateRepository(store, logr)
	}

	metrics := service.NewMetricsService()
	settings := service.NewSettings(cfg.Source, cfg.Drive.FolderID)
	audit := service.NewAuditService(docs, logr)

	src := source.NewSQLiteSource(cfg.Source, logr)
	open := func(ctx context.Context, dbPath string) (service.RecordSnapshot, error) {
		return src.Open(ctx, dbPath)
	}

	resolver := service.NewAttachmentResolver(objects, store, metrics, logr)
	syncSvc := service.NewSyncService(open, docs, objects, stateRepo, store, resolver, audit, metrics, settings, logr, service.SyncConfig{
		KeyColumn:    cfg.Source.KeyColumn,
		BackupFileID: cfg.Drive.BackupFileID,
	})

	runner := jobs.NewRunner("sync", func(ctx context.Context, trig jobs.Trigger) {
		syncSvc.RunCycle(ctx, trig.Reason)
	}, logr)
	runner.Start(ctx)

	control := service.NewControlService(docs, objects, folders, runner, settings, metrics, logr, cfg.Control, cfg.Drive.SignalName)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		control.Run(ctx)
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.Admin.AllowedOrigins))

	bridgeHandler := handler.NewBridgeHandler(syncSvc, runner, export.NewReportExporter())
	bridgeHandler.Register(r, metrics.Handler(), cfg.Admin.APIToken)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler: r,
	}
	go func() {
		logr.Sugar().Infow("admin server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("admin server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("admin server shutdown failed", "error", err)
	}

	// The runner waits for any in-flight cycle; the control loop publishes the
	// offline status on its way out.
	runner.Stop()
	wg.Wait()

	if fsStore != nil {
		if err := fsStore.Close(); err != nil {
			logr.Sugar().Warnw("firestore close failed", "error", err)
		}
	}
	logr.Sugar().Infow("bridge stopped")
}
