package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/mailbridge/internal/models"
)

// StateFileName is the well-known state file under the data directory.
const StateFileName = "sync_state.json"

type stateFileStorage interface {
	SaveAtomic(filename string, data []byte) (string, error)
	Path(filename string) string
}

// FileStateRepository persists the identity → entry mapping as a single JSON
// file. The orchestrator is the only writer and saves once per cycle, so a
// crash mid-cycle loses at most one cycle's worth of bookkeeping.
type FileStateRepository struct {
	storage stateFileStorage
	logger  *zap.Logger
}

// NewFileStateRepository constructs the repository.
func NewFileStateRepository(storage stateFileStorage, logger *zap.Logger) *FileStateRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStateRepository{storage: storage, logger: logger}
}

// Load returns the persisted mapping. A missing or corrupt file yields an
// empty mapping, never an error: losing state only forces redundant
// re-fingerprinting, not data loss.
func (r *FileStateRepository) Load(ctx context.Context) (models.StateMap, error) {
	raw, err := os.ReadFile(r.storage.Path(StateFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Sugar().Warnw("state file unreadable, starting empty", "error", err)
		}
		return models.StateMap{}, nil
	}

	state := models.StateMap{}
	if err := json.Unmarshal(raw, &state); err != nil {
		r.logger.Sugar().Warnw("state file corrupt, starting empty", "error", err)
		return models.StateMap{}, nil
	}
	return state, nil
}

// Save atomically replaces the whole mapping.
func (r *FileStateRepository) Save(ctx context.Context, state models.StateMap) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sync state: %w", err)
	}
	if _, err := r.storage.SaveAtomic(StateFileName, payload); err != nil {
		return fmt.Errorf("persist sync state: %w", err)
	}
	return nil
}
