package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mailbridge/internal/models"
)

func TestResolverReturnsCachedList(t *testing.T) {
	cached := models.StateEntry{
		Uploaded:    true,
		Attachments: []models.Attachment{{FileName: "surat.pdf", DriveFileID: "f-1"}},
	}
	objects := newObjectStoreStub()
	r := NewAttachmentResolver(objects, newScratchStub(), nil, nil)

	snap := &snapshotStub{attsErr: errors.New("must not be called")}
	result, complete := r.Resolve(context.Background(), snap, cached, "1", 2025)

	require.True(t, complete)
	require.Equal(t, cached.Attachments, result)
	require.Empty(t, objects.uploads)
}

func TestResolverUploadsNewFiles(t *testing.T) {
	objects := newObjectStoreStub()
	scratch := newScratchStub()
	r := NewAttachmentResolver(objects, scratch, nil, nil)
	snap := &snapshotStub{atts: map[string][]models.SourceFile{
		"7": {{Name: "surat.pdf", Data: []byte("pdf")}},
	}}

	result, complete := r.Resolve(context.Background(), snap, models.StateEntry{}, "7", 2025)

	require.True(t, complete)
	require.Len(t, result, 1)
	require.Equal(t, "surat.pdf", result[0].FileName)
	require.Equal(t, models.DownloadLink(result[0].DriveFileID), result[0].DriveViewLink)
	require.Equal(t, []string{"2025_7_surat.pdf"}, objects.uploads)
	require.Contains(t, objects.public, result[0].DriveFileID)
	// Scratch copy is cleaned up after the upload.
	require.Contains(t, scratch.deleted, "scratch/2025_7_surat.pdf")
}

func TestResolverReusesExistingRemoteFile(t *testing.T) {
	objects := newObjectStoreStub()
	objects.byName["2025_7_surat.pdf"] = "existing-id"
	r := NewAttachmentResolver(objects, newScratchStub(), nil, nil)
	snap := &snapshotStub{atts: map[string][]models.SourceFile{
		"7": {{Name: "surat.pdf", Data: []byte("pdf")}},
	}}

	result, complete := r.Resolve(context.Background(), snap, models.StateEntry{}, "7", 2025)

	require.True(t, complete)
	require.Len(t, result, 1)
	require.Equal(t, "existing-id", result[0].DriveFileID)
	require.Empty(t, objects.uploads)
}

func TestResolverMarksIncompleteOnFailure(t *testing.T) {
	objects := newObjectStoreStub()
	objects.uploadErr["2025_7_rusak.pdf"] = errors.New("quota exceeded")
	r := NewAttachmentResolver(objects, newScratchStub(), nil, nil)
	snap := &snapshotStub{atts: map[string][]models.SourceFile{
		"7": {
			{Name: "ok.pdf", Data: []byte("pdf")},
			{Name: "rusak.pdf", Data: []byte("pdf")},
		},
	}}

	result, complete := r.Resolve(context.Background(), snap, models.StateEntry{}, "7", 2025)

	require.False(t, complete)
	require.Len(t, result, 1)
	require.Equal(t, "ok.pdf", result[0].FileName)
}

func TestResolverIncompleteOnExtractionFailure(t *testing.T) {
	r := NewAttachmentResolver(newObjectStoreStub(), newScratchStub(), nil, nil)
	snap := &snapshotStub{attsErr: errors.New("table locked")}

	result, complete := r.Resolve(context.Background(), snap, models.StateEntry{}, "7", 2025)

	require.False(t, complete)
	require.Nil(t, result)
}

func TestResolverDisabledWithoutObjectStore(t *testing.T) {
	r := NewAttachmentResolver(nil, newScratchStub(), nil, nil)
	snap := &snapshotStub{attsErr: errors.New("must not be called")}

	result, complete := r.Resolve(context.Background(), snap, models.StateEntry{}, "7", 2025)

	require.True(t, complete)
	require.Nil(t, result)
}
