package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mailbridge/internal/models"
	"github.com/noah-isme/mailbridge/pkg/config"
)

type triggerSubmitter interface {
	TrySubmit(reason string) bool
}

type FolderSetter interface {
	SetFolderID(id string)
}

// ControlService runs the lightweight loop that is distinct from sync
// execution: pull remote configuration, publish a heartbeat, and poll for the
// external trigger signal. All steps are read-mostly and idempotent, safe to
// run while a sync cycle is in flight.
type ControlService struct {
	docs     DocumentStore
	objects  ObjectStore
	folders  FolderSetter
	runner   triggerSubmitter
	settings *Settings
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      config.ControlConfig

	signalName string
}

// NewControlService constructs the loop. Both remote stores may be nil; the
// corresponding steps are skipped in degraded mode.
func NewControlService(docs DocumentStore, objects ObjectStore, folders FolderSetter, runner triggerSubmitter, settings *Settings, metrics *MetricsService, logger *zap.Logger, cfg config.ControlConfig, signalName string) *ControlService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.SyncEveryTick <= 0 {
		cfg.SyncEveryTick = 10
	}
	if cfg.ConfigTimeout <= 0 {
		cfg.ConfigTimeout = 15 * time.Second
	}
	if signalName == "" {
		signalName = "sync_signal.txt"
	}
	return &ControlService{
		docs:       docs,
		objects:    objects,
		folders:    folders,
		runner:     runner,
		settings:   settings,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		signalName: signalName,
	}
}

// Run blocks until ctx is cancelled. An immediate startup sync is submitted
// before the first tick. On shutdown the offline status is published so
// external monitors see the bridge go away cleanly.
func (s *ControlService) Run(ctx context.Context) {
	s.logger.Sugar().Infow("control loop started", "tick", s.cfg.TickInterval.String())
	s.runner.TrySubmit("startup")

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	sinceSync := 0
	for {
		select {
		case <-ctx.Done():
			s.publishOffline()
			s.logger.Sugar().Infow("control loop stopped")
			return
		case <-ticker.C:
			s.Tick(ctx, &sinceSync)
		}
	}
}

// Tick executes one control iteration. Exposed for tests.
func (s *ControlService) Tick(ctx context.Context, sinceSync *int) {
	s.syncRemoteConfig(ctx)
	s.publishHeartbeat(ctx)

	if s.consumeSignal(ctx) {
		s.runner.TrySubmit("remote-signal")
		*sinceSync = 0
		return
	}

	*sinceSync++
	if *sinceSync >= s.cfg.SyncEveryTick {
		s.logger.Sugar().Infow("periodic sync triggered")
		s.runner.TrySubmit("schedule")
		*sinceSync = 0
	}
}

// syncRemoteConfig fetches operator overrides with an explicit timeout so a
// degraded remote endpoint cannot stall the loop indefinitely.
func (s *ControlService) syncRemoteConfig(ctx context.Context) {
	if s.docs == nil {
		return
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfigTimeout)
	defer cancel()

	rc, err := s.docs.FetchRemoteConfig(fetchCtx)
	if err != nil {
		s.logger.Sugar().Warnw("remote config fetch failed", "error", err)
		return
	}
	s.settings.Apply(rc)
	if rc.FolderID != "" && s.folders != nil {
		s.folders.SetFolderID(rc.FolderID)
	}
}

func (s *ControlService) publishHeartbeat(ctx context.Context) {
	if s.docs == nil {
		return
	}
	if err := s.docs.PublishHeartbeat(ctx, models.StatusHealthy, ""); err != nil {
		s.logger.Sugar().Warnw("heartbeat failed", "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncHeartbeat()
	}
}

// consumeSignal checks for the trigger marker object and deletes it after
// detection; presence means a sync was requested externally.
func (s *ControlService) consumeSignal(ctx context.Context) bool {
	if s.objects == nil {
		return false
	}
	fileID, err := s.objects.FindByName(ctx, s.signalName)
	if err != nil {
		s.logger.Sugar().Warnw("signal poll failed", "error", err)
		return false
	}
	if fileID == "" {
		return false
	}
	s.logger.Sugar().Infow("sync signal received", "file_id", fileID)
	if err := s.objects.Delete(ctx, fileID); err != nil {
		s.logger.Sugar().Warnw("signal delete failed", "file_id", fileID, "error", err)
	}
	return true
}

func (s *ControlService) publishOffline() {
	if s.docs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.docs.PublishHeartbeat(ctx, models.StatusOffline, ""); err != nil {
		s.logger.Sugar().Warnw("offline status publish failed", "error", err)
	}
}
