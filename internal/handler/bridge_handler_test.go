package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mailbridge/internal/models"
)

type inspectorStub struct {
	phase  string
	report *models.CycleReport
}

func (i *inspectorStub) Phase() string {
	return i.phase
}

func (i *inspectorStub) LastReport() *models.CycleReport {
	return i.report
}

type triggerStub struct {
	accept  bool
	reasons []string
}

func (t *triggerStub) TrySubmit(reason string) bool {
	t.reasons = append(t.reasons, reason)
	return t.accept
}

type rendererStub struct {
	data []byte
	err  error
}

func (r *rendererStub) Render(report models.CycleReport) ([]byte, error) {
	return r.data, r.err
}

func newRouter(inspector *inspectorStub, trigger *triggerStub, renderer *rendererStub, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewBridgeHandler(inspector, trigger, renderer)
	h.Register(r, nil, token)
	return r
}

func TestHealth(t *testing.T) {
	r := newRouter(&inspectorStub{phase: models.PhaseIdle}, &triggerStub{}, &rendererStub{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Data["status"])
}

func TestStatusReportsPhaseAndLastCycle(t *testing.T) {
	report := &models.CycleReport{
		Stats:     models.SyncStats{Added: 2, Skipped: 5},
		Records:   7,
		StartedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	r := newRouter(&inspectorStub{phase: models.PhaseProcessing, report: report}, &triggerStub{}, &rendererStub{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Phase     string             `json:"phase"`
			LastCycle *models.CycleReport `json:"last_cycle"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.PhaseProcessing, body.Data.Phase)
	require.NotNil(t, body.Data.LastCycle)
	assert.Equal(t, 7, body.Data.LastCycle.Records)
	assert.Equal(t, 2, body.Data.LastCycle.Stats.Added)
}

func TestSyncAccepted(t *testing.T) {
	trigger := &triggerStub{accept: true}
	r := newRouter(&inspectorStub{phase: models.PhaseIdle}, trigger, &rendererStub{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"manual"}, trigger.reasons)
}

func TestSyncConflictWhenPending(t *testing.T) {
	r := newRouter(&inspectorStub{phase: models.PhaseProcessing}, &triggerStub{accept: false}, &rendererStub{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSyncRequiresToken(t *testing.T) {
	trigger := &triggerStub{accept: true}
	r := newRouter(&inspectorStub{phase: models.PhaseIdle}, trigger, &rendererStub{}, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, trigger.reasons)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/sync", nil)
	req.Header.Set("Authorization", "Bearer secret")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestReportStreamsPDF(t *testing.T) {
	renderer := &rendererStub{data: []byte("%PDF-1.4")}
	r := newRouter(&inspectorStub{phase: models.PhaseIdle, report: &models.CycleReport{}}, &triggerStub{}, renderer, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", w.Body.String())
}

func TestReportNotFoundBeforeFirstCycle(t *testing.T) {
	r := newRouter(&inspectorStub{phase: models.PhaseIdle}, &triggerStub{}, &rendererStub{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportRenderFailure(t *testing.T) {
	renderer := &rendererStub{err: errors.New("render failed")}
	r := newRouter(&inspectorStub{phase: models.PhaseIdle, report: &models.CycleReport{}}, &triggerStub{}, renderer, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}
