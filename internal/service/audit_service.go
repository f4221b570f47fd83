package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mailbridge/internal/models"
)

type auditSink interface {
	AddAuditEvent(ctx context.Context, event models.AuditEvent) error
}

// AuditService mirrors notable bridge events into the shared audit trail.
// Writes are best-effort: a failure is logged at low severity and never
// affects control flow.
type AuditService struct {
	sink   auditSink
	logger *zap.Logger
}

// NewAuditService constructs the service. A nil sink disables remote writes.
func NewAuditService(sink auditSink, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{sink: sink, logger: logger}
}

// Info records an informational event.
func (s *AuditService) Info(ctx context.Context, message string) {
	s.record(ctx, message, models.AuditLevelInfo)
}

// Error records an error event.
func (s *AuditService) Error(ctx context.Context, message string) {
	s.record(ctx, message, models.AuditLevelError)
}

func (s *AuditService) record(ctx context.Context, message, level string) {
	s.logger.Sugar().Infow("audit", "level", level, "message", message)
	if s.sink == nil {
		return
	}
	event := models.AuditEvent{
		ID:       uuid.NewString(),
		Message:  message,
		Level:    level,
		UserName: models.AuditActor,
	}
	if err := s.sink.AddAuditEvent(ctx, event); err != nil {
		s.logger.Sugar().Warnw("audit write failed", "error", err)
	}
}
