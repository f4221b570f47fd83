package models

import "time"

// Audit event levels.
const (
	AuditLevelInfo  = "info"
	AuditLevelError = "error"
)

// AuditActor identifies the bridge in the shared audit trail.
const AuditActor = "BRIDGE_ENGINE"

// AuditEvent is one append-only entry in the remote audit log collection.
type AuditEvent struct {
	ID        string    `firestore:"-" json:"id"`
	Message   string    `firestore:"message" json:"message"`
	Level     string    `firestore:"level" json:"level"`
	UserName  string    `firestore:"userName" json:"userName"`
	Timestamp time.Time `firestore:"timestamp,serverTimestamp" json:"timestamp"`
}
