package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mailbridge/internal/models"
	"github.com/noah-isme/mailbridge/pkg/config"
)

func TestSettingsApplyMergesNonZeroOverrides(t *testing.T) {
	s := NewSettings(config.SourceConfig{DBPath: "./agenda.db", TargetYear: 2025}, "folder-1")

	s.Apply(models.RemoteConfig{SourceDBPath: "/mnt/shared/agenda.db"})
	sourcePath, folderID, year := s.View()
	require.Equal(t, "/mnt/shared/agenda.db", sourcePath)
	require.Equal(t, "folder-1", folderID)
	require.Equal(t, 2025, year)

	s.Apply(models.RemoteConfig{FolderID: "folder-2", TargetYear: 2026})
	sourcePath, folderID, year = s.View()
	require.Equal(t, "/mnt/shared/agenda.db", sourcePath)
	require.Equal(t, "folder-2", folderID)
	require.Equal(t, 2026, year)

	// A fully zero override changes nothing.
	s.Apply(models.RemoteConfig{})
	sourcePath, folderID, year = s.View()
	require.Equal(t, "/mnt/shared/agenda.db", sourcePath)
	require.Equal(t, "folder-2", folderID)
	require.Equal(t, 2026, year)
}
