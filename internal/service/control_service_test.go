package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mailbridge/internal/models"
	"github.com/noah-isme/mailbridge/pkg/config"
)

type runnerStub struct {
	reasons []string
	accept  bool
}

func (r *runnerStub) TrySubmit(reason string) bool {
	r.reasons = append(r.reasons, reason)
	return r.accept
}

type folderStub struct {
	id string
}

func (f *folderStub) SetFolderID(id string) {
	f.id = id
}

func newControlFixture(docs *docStoreStub, objects *objectStoreStub, runner *runnerStub) (*ControlService, *Settings, *folderStub) {
	settings := NewSettings(config.SourceConfig{DBPath: "./agenda.db", TargetYear: 2025}, "")
	folders := &folderStub{}
	svc := NewControlService(docs, objects, folders, runner, settings, nil, nil, config.ControlConfig{
		TickInterval:  time.Minute,
		SyncEveryTick: 3,
		ConfigTimeout: time.Second,
	}, "sync_signal.txt")
	return svc, settings, folders
}

func TestControlTickSchedulesAfterInterval(t *testing.T) {
	runner := &runnerStub{accept: true}
	svc, _, _ := newControlFixture(newDocStoreStub(), newObjectStoreStub(), runner)

	sinceSync := 0
	for i := 0; i < 3; i++ {
		svc.Tick(context.Background(), &sinceSync)
	}

	require.Equal(t, []string{"schedule"}, runner.reasons)
	require.Equal(t, 0, sinceSync)
}

func TestControlTickConsumesSignal(t *testing.T) {
	runner := &runnerStub{accept: true}
	objects := newObjectStoreStub()
	objects.byName["sync_signal.txt"] = "sig-1"
	svc, _, _ := newControlFixture(newDocStoreStub(), objects, runner)

	sinceSync := 2
	svc.Tick(context.Background(), &sinceSync)

	require.Equal(t, []string{"remote-signal"}, runner.reasons)
	require.Equal(t, []string{"sig-1"}, objects.deleted)
	require.Equal(t, 0, sinceSync)
}

func TestControlTickAppliesRemoteConfig(t *testing.T) {
	docs := newDocStoreStub()
	docs.remoteCfg = models.RemoteConfig{
		SourceDBPath: "/mnt/shared/agenda.db",
		FolderID:     "folder-2",
		TargetYear:   2026,
	}
	svc, settings, folders := newControlFixture(docs, newObjectStoreStub(), &runnerStub{accept: true})

	sinceSync := 0
	svc.Tick(context.Background(), &sinceSync)

	sourcePath, folderID, year := settings.View()
	require.Equal(t, "/mnt/shared/agenda.db", sourcePath)
	require.Equal(t, "folder-2", folderID)
	require.Equal(t, 2026, year)
	require.Equal(t, "folder-2", folders.id)
}

func TestControlTickPublishesHeartbeat(t *testing.T) {
	docs := newDocStoreStub()
	svc, _, _ := newControlFixture(docs, newObjectStoreStub(), &runnerStub{accept: true})

	sinceSync := 0
	svc.Tick(context.Background(), &sinceSync)

	require.Len(t, docs.heartbeats, 1)
	require.Equal(t, models.StatusHealthy, docs.heartbeats[0].status)
	require.Empty(t, docs.heartbeats[0].lastError)
}

func TestControlRunPublishesOfflineOnStop(t *testing.T) {
	docs := newDocStoreStub()
	runner := &runnerStub{accept: true}
	svc, _, _ := newControlFixture(docs, newObjectStoreStub(), runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Run(ctx)

	require.Equal(t, []string{"startup"}, runner.reasons)
	require.Len(t, docs.heartbeats, 1)
	require.Equal(t, models.StatusOffline, docs.heartbeats[0].status)
}

func TestControlTickDegradedWithoutRemotes(t *testing.T) {
	runner := &runnerStub{accept: true}
	settings := NewSettings(config.SourceConfig{DBPath: "./agenda.db", TargetYear: 2025}, "")
	svc := NewControlService(nil, nil, nil, runner, settings, nil, nil, config.ControlConfig{
		TickInterval:  time.Minute,
		SyncEveryTick: 1,
		ConfigTimeout: time.Second,
	}, "")

	sinceSync := 0
	svc.Tick(context.Background(), &sinceSync)

	require.Equal(t, []string{"schedule"}, runner.reasons)
}
