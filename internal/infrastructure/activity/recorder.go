// Package activity provides the audit trail sink for domain operations.
package activity

import (
	"context"

	"go.uber.org/zap"

	"github.com/warestock/backend/internal/domain/shared"
	"github.com/warestock/backend/internal/infrastructure/logger"
)

// LogRecorder writes activity entries to the structured log. Recording is
// fire-and-forget: a failed write must never fail the business operation, so
// this implementation has no error path at all.
type LogRecorder struct {
	logger *zap.Logger
}

// NewLogRecorder creates a recorder writing to the given logger
func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRecorder{logger: logger.Named("activity")}
}

// Record implements shared.ActivityRecorder. When the entry carries no actor,
// the acting user is taken from the context; the request ID travels the same
// way so entries correlate with the request log.
func (r *LogRecorder) Record(ctx context.Context, entry shared.ActivityEntry) {
	fields := []zap.Field{
		zap.String("action", entry.Action),
		zap.String("entity_type", entry.EntityType),
		zap.String("entity_id", entry.EntityID),
	}
	actorID := entry.ActorID
	if actorID == "" {
		actorID = logger.GetActorID(ctx)
	}
	if actorID != "" {
		fields = append(fields, zap.String("actor_id", actorID))
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if len(entry.Details) > 0 {
		fields = append(fields, zap.Any("details", entry.Details))
	}
	r.logger.Info("activity", fields...)
}

var _ shared.ActivityRecorder = (*LogRecorder)(nil)
