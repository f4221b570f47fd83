package service

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/noah-isme/mailbridge/internal/models"
)

type attachmentLister interface {
	Attachments(ctx context.Context, key string) ([]models.SourceFile, error)
}

type ObjectStore interface {
	UploadNew(ctx context.Context, name, localPath string) (string, error)
	UpdateExisting(ctx context.Context, fileID, localPath string) error
	FindByName(ctx context.Context, name string) (string, error)
	SetPublicRead(ctx context.Context, fileID string) error
	Delete(ctx context.Context, fileID string) error
}

type scratchStorage interface {
	Save(filename string, data []byte) (string, error)
	SaveAtomic(filename string, data []byte) (string, error)
	CopyFile(src, filename string) (string, error)
	Delete(filename string) error
	Path(filename string) string
}

// AttachmentResolver produces the ordered attachment list for one record.
// The dominant path after the first cycle is the cached list from the state
// entry; extraction and upload only happen when the state store has no record
// of a prior upload.
type AttachmentResolver struct {
	objects ObjectStore
	scratch scratchStorage
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAttachmentResolver constructs the resolver. A nil object store disables
// uploads entirely.
func NewAttachmentResolver(objects ObjectStore, scratch scratchStorage, metrics *MetricsService, logger *zap.Logger) *AttachmentResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentResolver{objects: objects, scratch: scratch, metrics: metrics, logger: logger}
}

// Resolve returns the attachments to embed for the record identified by key,
// and whether the list is complete. An incomplete list means at least one
// child file failed to resolve this cycle; the caller must not cache it as
// final. Failures never block the record's own sync.
func (r *AttachmentResolver) Resolve(ctx context.Context, lister attachmentLister, cached models.StateEntry, key string, year int) ([]models.Attachment, bool) {
	if cached.Uploaded && len(cached.Attachments) > 0 {
		return cached.Attachments, true
	}
	if lister == nil || r.objects == nil {
		return nil, true
	}

	files, err := lister.Attachments(ctx, key)
	if err != nil {
		r.logger.Sugar().Warnw("attachment extraction failed", "record", key, "error", err)
		return nil, false
	}

	results := make([]models.Attachment, 0, len(files))
	complete := true
	for _, file := range files {
		remoteName := fmt.Sprintf("%d_%s_%s", year, key, file.Name)

		existingID, err := r.objects.FindByName(ctx, remoteName)
		if err != nil {
			r.logger.Sugar().Warnw("attachment lookup failed", "record", key, "name", remoteName, "error", err)
			complete = false
			continue
		}
		if existingID != "" {
			results = append(results, models.Attachment{
				FileName:      file.Name,
				DriveFileID:   existingID,
				DriveViewLink: models.DownloadLink(existingID),
			})
			continue
		}

		att, ok := r.uploadFile(ctx, remoteName, file)
		if !ok {
			complete = false
			continue
		}
		results = append(results, att)
	}
	return results, complete
}

func (r *AttachmentResolver) uploadFile(ctx context.Context, remoteName string, file models.SourceFile) (models.Attachment, bool) {
	scratchName := path.Join("scratch", remoteName)
	localPath, err := r.scratch.Save(scratchName, file.Data)
	if err != nil {
		r.logger.Sugar().Warnw("attachment scratch write failed", "name", remoteName, "error", err)
		return models.Attachment{}, false
	}
	// The scratch file is removed whether or not the upload succeeds.
	defer func() {
		if err := r.scratch.Delete(scratchName); err != nil {
			r.logger.Sugar().Warnw("scratch cleanup failed", "name", remoteName, "error", err)
		}
	}()

	fileID, err := r.objects.UploadNew(ctx, remoteName, localPath)
	if err != nil {
		r.logger.Sugar().Warnw("attachment upload failed", "name", remoteName, "error", err)
		return models.Attachment{}, false
	}
	if err := r.objects.SetPublicRead(ctx, fileID); err != nil {
		r.logger.Sugar().Debugw("attachment permission set failed", "name", remoteName, "error", err)
	}
	if r.metrics != nil {
		r.metrics.IncUpload()
	}
	return models.Attachment{
		FileName:      file.Name,
		DriveFileID:   fileID,
		DriveViewLink: models.DownloadLink(fileID),
	}, true
}
