package service

import (
	"sync"

	"github.com/noah-isme/mailbridge/internal/models"
	"github.com/noah-isme/mailbridge/pkg/config"
)

// Settings holds the mutable bridge parameters the remote config document may
// override between cycles. The orchestrator snapshots them at cycle start so
// a cycle always runs against one consistent view.
type Settings struct {
	mu         sync.RWMutex
	sourcePath string
	folderID   string
	targetYear int
}

// NewSettings seeds settings from the local configuration.
func NewSettings(cfg config.SourceConfig, folderID string) *Settings {
	return &Settings{
		sourcePath: cfg.DBPath,
		folderID:   folderID,
		targetYear: cfg.TargetYear,
	}
}

// Apply merges non-zero remote overrides.
func (s *Settings) Apply(rc models.RemoteConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rc.SourceDBPath != "" {
		s.sourcePath = rc.SourceDBPath
	}
	if rc.FolderID != "" {
		s.folderID = rc.FolderID
	}
	if rc.TargetYear > 0 {
		s.targetYear = rc.TargetYear
	}
}

// View returns an immutable snapshot for one cycle.
func (s *Settings) View() (sourcePath, folderID string, targetYear int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourcePath, s.folderID, s.targetYear
}
