package remote

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/noah-isme/mailbridge/pkg/config"
)

// DriveStore is the object storage sink. All lookups and uploads are scoped
// to the configured folder when one is set.
type DriveStore struct {
	service *drive.Service
	logger  *zap.Logger

	mu       sync.RWMutex
	folderID string
}

// NewDriveStore connects to object storage with a service account.
func NewDriveStore(ctx context.Context, cfg config.DriveConfig, logger *zap.Logger) (*DriveStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	service, err := drive.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(drive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("connect drive: %w", err)
	}
	return &DriveStore{service: service, logger: logger, folderID: cfg.FolderID}, nil
}

// SetFolderID applies a remote folder override for subsequent operations.
func (s *DriveStore) SetFolderID(id string) {
	s.mu.Lock()
	s.folderID = id
	s.mu.Unlock()
}

func (s *DriveStore) folder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.folderID
}

// FindByName returns the ID of the first non-trashed object with the exact
// name, or "" when none exists.
func (s *DriveStore) FindByName(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and trashed = false", escapeQuery(name))
	if folder := s.folder(); folder != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(folder))
	}
	res, err := s.service.Files.List().Q(q).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("find object %q: %w", name, err)
	}
	if len(res.Files) == 0 {
		return "", nil
	}
	return res.Files[0].Id, nil
}

// UploadNew creates a new object from a local file and returns its ID.
func (s *DriveStore) UploadNew(ctx context.Context, name, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	meta := &drive.File{Name: name}
	if folder := s.folder(); folder != "" {
		meta.Parents = []string{folder}
	}
	created, err := s.service.Files.Create(meta).Media(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("upload object %q: %w", name, err)
	}
	return created.Id, nil
}

// UpdateExisting replaces the content of an existing object in place, keeping
// its ID and any external links stable.
func (s *DriveStore) UpdateExisting(ctx context.Context, fileID, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	if _, err := s.service.Files.Update(fileID, &drive.File{}).Media(f).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update object %s: %w", fileID, err)
	}
	return nil
}

// SetPublicRead makes an object link-readable by anyone.
func (s *DriveStore) SetPublicRead(ctx context.Context, fileID string) error {
	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err := s.service.Permissions.Create(fileID, perm).Context(ctx).Do(); err != nil {
		return fmt.Errorf("set public read on %s: %w", fileID, err)
	}
	return nil
}

// Delete removes an object; used to consume trigger signal markers.
func (s *DriveStore) Delete(ctx context.Context, fileID string) error {
	if err := s.service.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete object %s: %w", fileID, err)
	}
	return nil
}

func escapeQuery(value string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
}
