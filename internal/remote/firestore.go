package remote

import (
	"context"
	"fmt"
	"strconv"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/noah-isme/mailbridge/internal/models"
	"github.com/noah-isme/mailbridge/pkg/config"
)

// FirestoreStore is the document store sink: per-record upserts, the shared
// system config document, and the append-only audit log collection.
type FirestoreStore struct {
	client     *firestore.Client
	records    string
	configColl string
	configDoc  string
	auditColl  string
	logger     *zap.Logger
}

// NewFirestoreStore connects to the project's document store.
func NewFirestoreStore(ctx context.Context, cfg config.FirestoreConfig, logger *zap.Logger) (*FirestoreStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect firestore: %w", err)
	}
	return &FirestoreStore{
		client:     client,
		records:    cfg.RecordsCollection,
		configColl: cfg.ConfigCollection,
		configDoc:  cfg.ConfigDocument,
		auditColl:  cfg.AuditCollection,
		logger:     logger,
	}, nil
}

// UpsertRecord writes one record document by identity, merging so fields
// written by other collaborators survive.
func (s *FirestoreStore) UpsertRecord(ctx context.Context, id string, data map[string]any) error {
	if _, err := s.client.Collection(s.records).Doc(id).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("upsert record %s: %w", id, err)
	}
	return nil
}

// PublishHeartbeat merges the liveness fields into the system config
// document. An empty lastError clears the field when the status is healthy.
func (s *FirestoreStore) PublishHeartbeat(ctx context.Context, status, lastError string) error {
	fields := map[string]any{
		"syncStatus": status,
		"lastActive": firestore.ServerTimestamp,
	}
	if lastError != "" {
		fields["lastError"] = lastError
	} else if status == models.StatusHealthy {
		fields["lastError"] = nil
	}
	if _, err := s.systemDoc().Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("publish heartbeat: %w", err)
	}
	return nil
}

// UpdateBackupInfo records the backup artifact location together with a
// success heartbeat.
func (s *FirestoreStore) UpdateBackupInfo(ctx context.Context, backupURL, backupID string) error {
	fields := map[string]any{
		"backup_json_url": backupURL,
		"backup_json_id":  backupID,
		"syncStatus":      models.StatusHealthy,
		"lastSyncAt":      firestore.ServerTimestamp,
		"lastActive":      firestore.ServerTimestamp,
		"lastError":       nil,
	}
	if _, err := s.systemDoc().Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("update backup info: %w", err)
	}
	return nil
}

// FetchRemoteConfig reads operator overrides from the system config document.
// A missing document yields zero overrides.
func (s *FirestoreStore) FetchRemoteConfig(ctx context.Context) (models.RemoteConfig, error) {
	snap, err := s.systemDoc().Get(ctx)
	if err != nil {
		return models.RemoteConfig{}, fmt.Errorf("fetch remote config: %w", err)
	}
	data := snap.Data()
	rc := models.RemoteConfig{}
	if v, ok := data["accessDbPath"].(string); ok {
		rc.SourceDBPath = v
	}
	if v, ok := data["driveFolderId"].(string); ok {
		rc.FolderID = v
	}
	rc.TargetYear = asYear(data["targetYear"])
	return rc, nil
}

// AddAuditEvent appends one entry to the audit log collection.
func (s *FirestoreStore) AddAuditEvent(ctx context.Context, event models.AuditEvent) error {
	event.UserName = models.AuditActor
	if _, err := s.client.Collection(s.auditColl).NewDoc().Create(ctx, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) systemDoc() *firestore.DocumentRef {
	return s.client.Collection(s.configColl).Doc(s.configDoc)
}

// asYear tolerates the loose typing of the shared config document, where the
// year has been written as number and as string.
func asYear(v any) int {
	switch y := v.(type) {
	case int64:
		return int(y)
	case float64:
		return int(y)
	case string:
		n, err := strconv.Atoi(y)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
