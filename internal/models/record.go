package models

import "fmt"

// BinaryPlaceholder replaces raw blob column values during normalization.
// Blobs are not meaningfully serializable and must not bloat the fingerprint
// input.
const BinaryPlaceholder = "[BINARY]"

// Attachment is one file mirrored to object storage and referenced from a
// record document. Field names match the consuming web application.
type Attachment struct {
	FileName      string `json:"fileName" firestore:"fileName"`
	DriveFileID   string `json:"driveFileId" firestore:"driveFileId"`
	DriveViewLink string `json:"driveViewLink" firestore:"driveViewLink"`
}

// Record is one normalized source row ready for mirroring. Data holds the
// column-name → value mapping including the derived id, year, attachments and
// attachment_link fields.
type Record struct {
	ID   string
	Key  string
	Data map[string]any
}

// SourceFile is one raw child file extracted from the attachment source.
type SourceFile struct {
	Name string
	Data []byte
}

// RecordID renders the composite (sequence number, year) identity as a single
// document identifier.
func RecordID(key any, year int) string {
	return fmt.Sprintf("%v-%d", key, year)
}

// DownloadLink builds the public download URL for an uploaded object.
func DownloadLink(fileID string) string {
	return "https://drive.google.com/uc?export=download&id=" + fileID
}
