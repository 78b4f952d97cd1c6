package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldOperationID is the field name for operation ID.
	LogFieldOperationID = "operation_id"
	// LogFieldUserID is the field name for user ID.
	LogFieldUserID = "user_id"
	// LogFieldOperation is the field name for the operation kind.
	LogFieldOperation = "operation"
	// LogFieldEventType is the field name for event type.
	LogFieldEventType = "event_type"
	// LogFieldCategory is the field name for preference category.
	LogFieldCategory = "category"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
)

// OperationContext carries structured logging state for a single user context
// or preference operation.
type OperationContext struct {
	OperationID string
	Operation   string
	UserID      int32
	StartTime   time.Time
	Logger      *slog.Logger
}

// NewOperationContext creates a new operation context with a generated operation ID.
func NewOperationContext(logger *slog.Logger, operation string, userID int32) *OperationContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationContext{
		OperationID: uuid.New().String(),
		Operation:   operation,
		UserID:      userID,
		StartTime:   time.Now(),
		Logger:      logger,
	}
}

// Info logs an info message.
func (o *OperationContext) Info(msg string, attrs ...slog.Attr) {
	o.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, o.baseAttrsAppended(attrs...)...)
}

// Debug logs a debug message.
func (o *OperationContext) Debug(msg string, attrs ...slog.Attr) {
	o.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, o.baseAttrsAppended(attrs...)...)
}

// Warn logs a warning message.
func (o *OperationContext) Warn(msg string, attrs ...slog.Attr) {
	o.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, o.baseAttrsAppended(attrs...)...)
}

// Error logs an error message with the error.
func (o *OperationContext) Error(msg string, err error, attrs ...slog.Attr) {
	allAttrs := append(attrs, slog.String("error", err.Error()))
	o.Logger.LogAttrs(context.Background(), slog.LevelError, msg, o.baseAttrsAppended(allAttrs...)...)
}

// Duration returns the elapsed time since the operation started.
func (o *OperationContext) Duration() time.Duration {
	return time.Since(o.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (o *OperationContext) DurationMs() int64 {
	return o.Duration().Milliseconds()
}

func (o *OperationContext) baseAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String(LogFieldOperationID, o.OperationID),
		slog.String(LogFieldOperation, o.Operation),
		slog.Int64(LogFieldUserID, int64(o.UserID)),
	}
}

func (o *OperationContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	return append(o.baseAttrs(), attrs...)
}
