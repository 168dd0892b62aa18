package logging

import (
	"context"
	"log/slog"

	"clipto/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for workflow identifiers.
	FieldItemID = "item_id"
	// FieldStage is the standardized structured logging key for workflow stage names.
	FieldStage = "stage"
	// FieldLane is the standardized structured logging key for workflow lane names.
	FieldLane = "lane"
	// FieldRequestID identifies the Clipto booking request a workflow delivers.
	FieldRequestID = "request_id"
	// FieldJobID identifies a remote job (upload uuid or transaction hash).
	FieldJobID = "job_id"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType names the kind of event a log line records.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the error taxonomy marker.
	FieldErrorKind = "error_kind"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields returns the delivery correlation carried by ctx as slog
// attributes, in a fixed order.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldItemID, id))
	}
	for _, tag := range []struct {
		key string
		get func(context.Context) (string, bool)
	}{
		{FieldStage, services.StageFromContext},
		{FieldLane, services.LaneFromContext},
		{FieldCorrelationID, services.RequestIDFromContext},
	} {
		if v, ok := tag.get(ctx); ok {
			fields = append(fields, slog.String(tag.key, v))
		}
	}
	return fields
}

// WithContext binds the correlation fields of ctx to logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}
