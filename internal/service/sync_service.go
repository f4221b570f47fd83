package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mailbridge/internal/models"
)

// RecordSnapshot is one cycle's isolated view of the source database.
type RecordSnapshot interface {
	Rows(ctx context.Context) ([]map[string]any, error)
	Attachments(ctx context.Context, key string) ([]models.SourceFile, error)
	Close() error
}

// SnapshotOpener opens a snapshot copy of the source database.
type SnapshotOpener func(ctx context.Context, dbPath string) (RecordSnapshot, error)

type DocumentStore interface {
	UpsertRecord(ctx context.Context, id string, data map[string]any) error
	PublishHeartbeat(ctx context.Context, status, lastError string) error
	UpdateBackupInfo(ctx context.Context, backupURL, backupID string) error
	FetchRemoteConfig(ctx context.Context) (models.RemoteConfig, error)
	AddAuditEvent(ctx context.Context, event models.AuditEvent) error
}

type StateStore interface {
	Load(ctx context.Context) (models.StateMap, error)
	Save(ctx context.Context, state models.StateMap) error
}

// SyncConfig carries the orchestrator's fixed parameters. The mutable ones
// (source path, target year, folder) come from Settings at cycle start.
type SyncConfig struct {
	KeyColumn    string
	BackupFileID string
}

// SyncService drives one full sync cycle: snapshot, normalize, fingerprint,
// resolve attachments, mirror changed records, persist state, upload the
// full-dataset backup. Errors never cross the cycle boundary; the outcome is
// a CycleReport plus heartbeat and logs.
type SyncService struct {
	open     SnapshotOpener
	docs     DocumentStore
	objects  ObjectStore
	state    StateStore
	storage  scratchStorage
	resolver *AttachmentResolver
	audit    *AuditService
	metrics  *MetricsService
	settings *Settings
	logger   *zap.Logger
	cfg      SyncConfig

	mu         sync.RWMutex
	phase      string
	lastReport *models.CycleReport
}

// NewSyncService constructs the orchestrator. The document and object stores
// may be nil; the cycle then runs in degraded mode without remote mirroring.
func NewSyncService(open SnapshotOpener, docs DocumentStore, objects ObjectStore, state StateStore, storage scratchStorage, resolver *AttachmentResolver, audit *AuditService, metrics *MetricsService, settings *Settings, logger *zap.Logger, cfg SyncConfig) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.KeyColumn == "" {
		cfg.KeyColumn = "NO URUT"
	}
	return &SyncService{
		open:     open,
		docs:     docs,
		objects:  objects,
		state:    state,
		storage:  storage,
		resolver: resolver,
		audit:    audit,
		metrics:  metrics,
		settings: settings,
		logger:   logger,
		cfg:      cfg,
		phase:    models.PhaseIdle,
	}
}

// Phase reports the current state machine phase.
func (s *SyncService) Phase() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// LastReport returns the most recent cycle report, or nil before the first
// cycle completes.
func (s *SyncService) LastReport() *models.CycleReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastReport == nil {
		return nil
	}
	report := *s.lastReport
	return &report
}

func (s *SyncService) setPhase(phase string) {
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
}

// RunCycle executes one full sync cycle. It never returns an error: every
// failure is reported through the heartbeat and the cycle report.
func (s *SyncService) RunCycle(ctx context.Context, reason string) models.CycleReport {
	start := time.Now()
	report := models.CycleReport{StartedAt: start.UTC()}
	s.logger.Sugar().Infow("sync cycle started", "reason", reason)

	defer func() {
		report.FinishedAt = time.Now().UTC()
		report.Duration = time.Since(start).Round(time.Millisecond).String()
		s.mu.Lock()
		s.phase = models.PhaseIdle
		s.lastReport = &report
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.ObserveCycle(report, time.Since(start).Seconds())
		}
	}()

	sourcePath, _, year := s.settings.View()

	// Preparing: validate the source and snapshot it so the live file is
	// never held open while records are processed.
	s.setPhase(models.PhasePreparing)
	if sourcePath == "" {
		s.failCycle(ctx, &report, fmt.Sprintf("Missing DB: %s", sourcePath))
		return report
	}
	if _, err := os.Stat(sourcePath); err != nil {
		s.failCycle(ctx, &report, fmt.Sprintf("Missing DB: %s", sourcePath))
		return report
	}

	snapName := fmt.Sprintf("scratch/snapshot_%d.db", start.UnixNano())
	snapPath, err := s.storage.CopyFile(sourcePath, snapName)
	if err != nil {
		s.failCycle(ctx, &report, fmt.Sprintf("Copy Error: %v", err))
		return report
	}
	defer func() {
		if err := s.storage.Delete(snapName); err != nil {
			s.logger.Sugar().Warnw("snapshot cleanup failed", "path", snapPath, "error", err)
		}
	}()

	snap, err := s.open(ctx, snapPath)
	if err != nil {
		s.failCycle(ctx, &report, fmt.Sprintf("Process Error: %v", err))
		return report
	}
	defer snap.Close()

	// Processing: classify and mirror every row.
	s.setPhase(models.PhaseProcessing)
	rows, err := snap.Rows(ctx)
	if err != nil {
		s.failCycle(ctx, &report, fmt.Sprintf("Table Read Failed: %v", err))
		return report
	}

	state, err := s.state.Load(ctx)
	if err != nil {
		s.logger.Sugar().Warnw("state load failed, starting empty", "error", err)
		state = models.StateMap{}
	}

	allRecords := make([]map[string]any, 0, len(rows))
	stats := models.SyncStats{}

	for _, row := range rows {
		data := NormalizeRow(row)
		key, ok := RecordKey(data, s.cfg.KeyColumn)
		if !ok {
			continue
		}
		keyStr := fmt.Sprintf("%v", key)
		docID := models.RecordID(key, year)
		data["id"] = docID
		data["year"] = year

		// Fingerprint covers the normalized columns plus identity, not
		// the attachment fields added below.
		hash, err := Fingerprint(data)
		if err != nil {
			s.logger.Sugar().Warnw("fingerprint failed", "record", docID, "error", err)
			continue
		}

		cached := state[docID]
		attachments, complete := s.resolver.Resolve(ctx, snap, cached, keyStr, year)
		data["attachments"] = attachments
		data["attachment_link"] = joinLinks(attachments)

		// The backup always reflects everything seen, not only deltas.
		allRecords = append(allRecords, data)

		if cached.Hash == hash && cached.Uploaded {
			stats.Skipped++
		} else {
			if s.docs != nil {
				if err := s.docs.UpsertRecord(ctx, docID, data); err != nil {
					s.logger.Sugar().Warnw("document write failed", "record", docID, "error", err)
					if s.metrics != nil {
						s.metrics.IncRemoteFailure()
					}
					stats.Failed++
					// State entry untouched: retried next cycle.
					continue
				}
			}
			if cached.Uploaded {
				stats.Updated++
			} else {
				stats.Added++
			}
			entryAttachments := attachments
			if !complete {
				// A partial list is never cached as final; the next
				// cycle re-resolves, with name lookup preventing
				// duplicate uploads.
				entryAttachments = nil
			}
			state[docID] = models.StateEntry{
				Uploaded:    true,
				Hash:        hash,
				Attachments: entryAttachments,
				TS:          time.Now().UTC().Format(time.RFC3339),
			}
		}

		if total := stats.Total(); total > 0 && total%100 == 0 {
			s.logger.Sugar().Infow("progress", "scanned", total)
		}
	}

	report.Stats = stats
	report.Records = len(allRecords)

	// Backing up: persist state once, then replace the full-dataset artifact.
	s.setPhase(models.PhaseBackingUp)
	if err := s.state.Save(ctx, state); err != nil {
		s.logger.Sugar().Errorw("state save failed", "error", err)
	}
	s.logger.Sugar().Infow("sync results",
		"added", stats.Added, "updated", stats.Updated, "skipped", stats.Skipped, "failed", stats.Failed)

	s.backUp(ctx, &report, allRecords, year)

	if s.audit != nil {
		s.audit.Info(ctx, fmt.Sprintf("Sync Cycle Completed successfully in %.2fs", time.Since(start).Seconds()))
	}
	return report
}

// backUp serializes the accumulated dataset, uploads it under a stable name,
// and records the backup location in the remote config document. A failure
// here is reported but never rolls back the per-record mirroring.
func (s *SyncService) backUp(ctx context.Context, report *models.CycleReport, allRecords []map[string]any, year int) {
	payload, err := json.MarshalIndent(allRecords, "", "  ")
	if err != nil {
		s.logger.Sugar().Errorw("backup serialization failed", "error", err)
		return
	}
	localName := "latest_data.json"
	localPath, err := s.storage.SaveAtomic(localName, payload)
	if err != nil {
		s.logger.Sugar().Errorw("backup write failed", "error", err)
		return
	}

	if s.objects == nil {
		return
	}

	remoteName := fmt.Sprintf("latest_data_%d.json", year)
	backupID, err := s.uploadBackup(ctx, localPath, remoteName)
	if err != nil {
		s.logger.Sugar().Errorw("backup upload failed", "error", err)
		return
	}
	if err := s.objects.SetPublicRead(ctx, backupID); err != nil {
		s.logger.Sugar().Debugw("backup permission set failed", "error", err)
	}

	backupURL := models.DownloadLink(backupID)
	report.BackupURL = backupURL
	s.logger.Sugar().Infow("backup uploaded", "file_id", backupID)

	if s.docs != nil {
		if err := s.docs.UpdateBackupInfo(ctx, backupURL, backupID); err != nil {
			s.logger.Sugar().Warnw("backup metadata update failed", "error", err)
		}
	}
}

// uploadBackup prefers the pinned remote file ID when configured so the
// external reference link stays stable across runs, falling back to a name
// lookup and finally to creating a fresh object.
func (s *SyncService) uploadBackup(ctx context.Context, localPath, remoteName string) (string, error) {
	targetID := s.cfg.BackupFileID
	if targetID == "" {
		existing, err := s.objects.FindByName(ctx, remoteName)
		if err != nil {
			s.logger.Sugar().Warnw("backup lookup failed", "name", remoteName, "error", err)
		} else {
			targetID = existing
		}
	}

	if targetID != "" {
		err := s.objects.UpdateExisting(ctx, targetID, localPath)
		if err == nil {
			return targetID, nil
		}
		s.logger.Sugar().Warnw("backup update failed, falling back to create", "file_id", targetID, "error", err)
	}
	return s.objects.UploadNew(ctx, remoteName, localPath)
}

// failCycle reports a cycle-fatal condition. The process stays healthy; the
// error only surfaces through lastError and the report.
func (s *SyncService) failCycle(ctx context.Context, report *models.CycleReport, message string) {
	report.Error = message
	s.logger.Sugar().Errorw("sync cycle aborted", "error", message)
	if s.docs != nil {
		if err := s.docs.PublishHeartbeat(ctx, models.StatusHealthy, message); err != nil {
			s.logger.Sugar().Warnw("heartbeat failed", "error", err)
		}
	}
	if s.audit != nil {
		s.audit.Error(ctx, fmt.Sprintf("System Error: %s", message))
	}
}

func joinLinks(attachments []models.Attachment) string {
	links := make([]string, 0, len(attachments))
	for _, a := range attachments {
		links = append(links, a.DriveViewLink)
	}
	return strings.Join(links, ", ")
}
