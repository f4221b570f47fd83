package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mailbridge/internal/models"
	appErrors "github.com/noah-isme/mailbridge/pkg/errors"
	"github.com/noah-isme/mailbridge/pkg/response"
)

type cycleInspector interface {
	Phase() string
	LastReport() *models.CycleReport
}

type syncTrigger interface {
	TrySubmit(reason string) bool
}

type reportRenderer interface {
	Render(report models.CycleReport) ([]byte, error)
}

// BridgeHandler exposes the local observability and trigger surface that
// replaces the desktop tray menu.
type BridgeHandler struct {
	inspector cycleInspector
	trigger   syncTrigger
	exporter  reportRenderer
	started   time.Time
}

// NewBridgeHandler builds the handler.
func NewBridgeHandler(inspector cycleInspector, trigger syncTrigger, exporter reportRenderer) *BridgeHandler {
	return &BridgeHandler{
		inspector: inspector,
		trigger:   trigger,
		exporter:  exporter,
		started:   time.Now().UTC(),
	}
}

// Health reports process liveness.
func (h *BridgeHandler) Health(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Status reports the state machine phase and the last cycle outcome.
func (h *BridgeHandler) Status(c *gin.Context) {
	payload := gin.H{"phase": h.inspector.Phase()}
	if report := h.inspector.LastReport(); report != nil {
		payload["last_cycle"] = report
	}
	response.JSON(c, http.StatusOK, payload)
}

// Sync submits a manual trigger. A request arriving while a cycle is already
// pending is coalesced and answered with a conflict.
func (h *BridgeHandler) Sync(c *gin.Context) {
	if !h.trigger.TrySubmit("manual") {
		response.Error(c, appErrors.ErrCycleRunning)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"triggered": true})
}

// Report streams the last cycle summary as a PDF.
func (h *BridgeHandler) Report(c *gin.Context) {
	report := h.inspector.LastReport()
	if report == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	pdf, err := h.exporter.Render(*report)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "report rendering failed"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="sync_report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// TokenAuth guards mutating endpoints with a static bearer token. An empty
// configured token disables the check (local-only deployments).
func TokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+token {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Register wires the routes onto the engine.
func (h *BridgeHandler) Register(r *gin.Engine, metricsHandler http.Handler, apiToken string) {
	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	r.GET("/report", h.Report)
	r.POST("/sync", TokenAuth(apiToken), h.Sync)
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}
}
