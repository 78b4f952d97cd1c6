package usercontext

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/userctx/internal/observability"
	"github.com/hrygo/userctx/store"
)

// ProfileStore loads user profiles and their preference entries. Missing
// users are nil, never an error.
type ProfileStore interface {
	GetUserByID(ctx context.Context, id int32) (*store.User, error)
	ListPreferences(ctx context.Context, userID int32) ([]*store.PreferenceEntry, error)
}

// SwitchUserResult is the authentication collaborator's answer to a switch
// request. Expected failures set Success false and carry a stable error code;
// only transport-level trouble is a Go error.
type SwitchUserResult struct {
	Success      bool
	Token        string
	SessionID    string
	ExpiresAt    *time.Time
	ErrorCode    string
	ErrorMessage string
}

// RefreshSessionResult is the answer to a session renewal request.
type RefreshSessionResult struct {
	Success      bool
	Token        string
	ExpiresAt    *time.Time
	ErrorCode    string
	ErrorMessage string
}

// Authenticator issues and renews sessions for this machine.
type Authenticator interface {
	SwitchUser(ctx context.Context, userID int32, machineID string) (*SwitchUserResult, error)
	RefreshSession(ctx context.Context, token, machineID string) (*RefreshSessionResult, error)
}

// AuditLogger records security-relevant context operations. Failures are
// swallowed by the caller; an audit log must never fail the operation it
// describes.
type AuditLogger interface {
	LogOperation(ctx context.Context, userID int32, eventType, description string) error
}

// slogAuditLogger is the default audit sink, writing structured records to
// the process log.
type slogAuditLogger struct {
	logger *slog.Logger
}

// NewSlogAuditLogger returns an AuditLogger backed by the given logger.
func NewSlogAuditLogger(logger *slog.Logger) AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogAuditLogger{logger: logger}
}

func (l *slogAuditLogger) LogOperation(ctx context.Context, userID int32, eventType, description string) error {
	l.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.Int64(observability.LogFieldUserID, int64(userID)),
		slog.String(observability.LogFieldEventType, eventType),
		slog.String("description", description),
	)
	return nil
}
