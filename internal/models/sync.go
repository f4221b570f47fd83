package models

import "time"

// StateEntry is the persisted per-record sync memory. If Uploaded is true,
// Hash reflects exactly the last successfully mirrored normalized record; the
// entry is the sole source of truth for skip decisions.
type StateEntry struct {
	Uploaded    bool         `json:"uploaded"`
	Hash        string       `json:"hash"`
	Attachments []Attachment `json:"attachments"`
	TS          string       `json:"ts"`
}

// StateMap is the whole identity → entry mapping persisted by the state store.
type StateMap map[string]StateEntry

// SyncStats counts record classifications for one cycle.
type SyncStats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Total returns the number of records that reached a classification.
func (s SyncStats) Total() int {
	return s.Added + s.Updated + s.Skipped + s.Failed
}

// Cycle phases of the sync state machine.
const (
	PhaseIdle       = "idle"
	PhasePreparing  = "preparing"
	PhaseProcessing = "processing"
	PhaseBackingUp  = "backing_up"
)

// CycleReport is the only outcome a sync cycle exposes: counters, timing and
// the last error, if any. No error crosses the cycle boundary.
type CycleReport struct {
	Stats      SyncStats `json:"stats"`
	Records    int       `json:"records"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Duration   string    `json:"duration"`
	BackupURL  string    `json:"backup_url,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// RemoteConfig carries operator overrides read from the remote config
// document. Zero values mean "no override".
type RemoteConfig struct {
	SourceDBPath string
	FolderID     string
	TargetYear   int
}

// Health status values published to the remote config document.
const (
	StatusHealthy = "healthy"
	StatusOffline = "offline"
)
