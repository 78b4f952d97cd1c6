package usercontext

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	errs "github.com/hrygo/userctx/internal/errors"
	"github.com/hrygo/userctx/internal/observability"
	"github.com/hrygo/userctx/notify"
	"github.com/hrygo/userctx/store"
)

// Result is the outcome of a context operation. Expected failures (not found,
// validation, upstream auth rejection) set OK false with a stable code; Go
// errors are reserved for programmer mistakes.
type Result struct {
	OK      bool
	Code    errs.ErrorCode
	Message string
	Context *UserContext
}

func okResult(uc *UserContext) *Result {
	return &Result{OK: true, Context: uc}
}

func failResult(code errs.ErrorCode, message string) *Result {
	return &Result{Code: code, Message: message}
}

func failErr(err *errs.OpError) *Result {
	return &Result{Code: err.Code, Message: err.Message}
}

// ManagerConfig configures a Manager. Zero values fall back to sane defaults.
type ManagerConfig struct {
	MachineID string
	// SessionNearExpiry is the remaining session lifetime under which Refresh
	// renews the session. Zero means DefaultNearExpiryThreshold.
	SessionNearExpiry time.Duration
	Audit             AuditLogger
	Logger            *slog.Logger
}

// Manager orchestrates context switches, refreshes and teardown, keeping the
// tiered cache and the change bus consistent.
type Manager struct {
	cache    *Cache
	profiles ProfileStore
	auth     Authenticator
	audit    AuditLogger
	logger   *slog.Logger

	machineID  string
	nearExpiry time.Duration

	events *notify.Bus[UserContextChangedEvent]

	// refreshGroup collapses concurrent refreshes of the same user into one
	// pass; refreshLimiter keeps near-expiry renewal attempts from hammering
	// the authenticator when every worker notices expiry at once.
	refreshGroup   singleflight.Group
	refreshLimiter *rate.Limiter
}

// NewManager wires a manager over its cache and collaborators.
func NewManager(cache *Cache, profiles ProfileStore, auth Authenticator, config ManagerConfig) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	audit := config.Audit
	if audit == nil {
		audit = NewSlogAuditLogger(logger)
	}
	nearExpiry := config.SessionNearExpiry
	if nearExpiry <= 0 {
		nearExpiry = DefaultNearExpiryThreshold
	}

	return &Manager{
		cache:          cache,
		profiles:       profiles,
		auth:           auth,
		audit:          audit,
		logger:         logger,
		machineID:      config.MachineID,
		nearExpiry:     nearExpiry,
		events: notify.New(func(e UserContextChangedEvent) string {
			return string(e.ChangeType)
		}, notify.Config{Logger: logger}),
		refreshLimiter: rate.NewLimiter(rate.Every(30*time.Second), 2),
	}
}

// Events returns the bus carrying context change events, keyed by change type.
func (m *Manager) Events() *notify.Bus[UserContextChangedEvent] {
	return m.events
}

// Cache returns the underlying tiered cache for read-path callers.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// SwitchTo makes userID the current user. Switching to the already-current
// user is a no-op success without touching the authenticator or the cache.
func (m *Manager) SwitchTo(ctx context.Context, userID int32) *Result {
	op := observability.NewOperationContext(m.logger, "switch_user", userID)

	if userID <= 0 {
		return failErr(errs.InvalidArgument("user id must be positive"))
	}
	if current := m.cache.Get(ctx); current != nil && current.UserID == userID {
		op.Debug("already current, skipping switch")
		return okResult(current)
	}

	user, err := m.profiles.GetUserByID(ctx, userID)
	if err != nil {
		op.Error("failed to load user profile", err)
		return failErr(errs.StoreUnavailable(err))
	}
	if !user.IsActive() {
		return failErr(errs.UserNotFound(userID))
	}

	session, err := m.auth.SwitchUser(ctx, userID, m.machineID)
	if err != nil {
		op.Error("authentication call failed", err)
		return failErr(errs.AuthFailed("authentication call failed"))
	}
	if !session.Success {
		// Upstream rejection codes pass through unchanged.
		code := errs.ErrorCode(session.ErrorCode)
		if code == "" {
			code = errs.ErrCodeAuthFailed
		}
		return failResult(code, session.ErrorMessage)
	}

	now := time.Now().Unix()
	next := &UserContext{
		UserID:           userID,
		Profile:          user,
		SessionToken:     session.Token,
		SessionID:        session.SessionID,
		SessionExpiresAt: session.ExpiresAt,
		MachineID:        m.machineID,
		Preferences:      m.warmPreferences(ctx, userID),
		CreatedTs:        now,
		UpdatedTs:        now,
	}

	// All I/O is done; honor cancellation before any tier is written.
	if err := ctx.Err(); err != nil {
		return failErr(errs.ContextCanceled(err))
	}
	prev, err := m.cache.Set(ctx, next)
	if err != nil {
		return failResult(errs.CodeOf(err, errs.ErrCodeInvalidArgument), err.Error())
	}

	changeType := UserSwitch
	if prev == nil {
		changeType = UserLogin
	}
	m.logAudit(ctx, userID, string(changeType), fmt.Sprintf("switched to user %q", user.Username))
	m.publish(ctx, prev, next, changeType)

	op.Info("user context switched",
		slog.String(observability.LogFieldEventType, string(changeType)),
		slog.Int64(observability.LogFieldDuration, op.DurationMs()))
	return okResult(next)
}

// Clear tears the current context down. With no current context it returns
// success without logging or publishing anything.
func (m *Manager) Clear(ctx context.Context) *Result {
	removed := m.cache.Clear(ctx)
	if removed == nil {
		return okResult(nil)
	}

	op := observability.NewOperationContext(m.logger, "clear_context", removed.UserID)
	m.logAudit(ctx, removed.UserID, string(UserLogout), "user context cleared")
	m.publish(ctx, removed, nil, UserLogout)

	op.Info("user context cleared",
		slog.Int64(observability.LogFieldDuration, op.DurationMs()))
	return okResult(nil)
}

// Refresh reloads the current context's profile and preferences, renewing the
// session when it nears expiry. A vanished or deactivated profile clears the
// context instead of leaving it dangling. Concurrent refreshes of the same
// user share one pass.
func (m *Manager) Refresh(ctx context.Context) *Result {
	current := m.cache.Get(ctx)
	if current == nil {
		return okResult(nil)
	}

	value, _, _ := m.refreshGroup.Do(fmt.Sprintf("refresh:%d", current.UserID), func() (any, error) {
		return m.doRefresh(ctx, current), nil
	})
	return value.(*Result)
}

func (m *Manager) doRefresh(ctx context.Context, current *UserContext) *Result {
	op := observability.NewOperationContext(m.logger, "refresh_context", current.UserID)

	user, err := m.profiles.GetUserByID(ctx, current.UserID)
	if err != nil {
		op.Error("failed to reload user profile", err)
		return failErr(errs.StoreUnavailable(err))
	}
	if !user.IsActive() {
		op.Warn("backing profile gone or inactive, clearing context")
		return m.Clear(ctx)
	}

	// Never touch the installed context: concurrent readers hold it through
	// the cache tiers. All updates go onto a copy that is swapped in whole,
	// so a reader sees either the complete old or complete new context.
	next := current.snapshot()

	if next.IsSessionNearExpiry(m.nearExpiry) {
		if m.refreshLimiter.Allow() {
			renewed, err := m.auth.RefreshSession(ctx, next.SessionToken, m.machineID)
			switch {
			case err != nil:
				op.Warn("session renewal failed, keeping existing session",
					slog.String("error", err.Error()))
			case !renewed.Success:
				op.Warn("session renewal rejected, keeping existing session",
					slog.String(observability.LogFieldErrorCode, renewed.ErrorCode))
			default:
				next.SessionToken = renewed.Token
				next.SessionExpiresAt = renewed.ExpiresAt
			}
		} else {
			op.Warn("session renewal throttled, keeping existing session")
		}
	}

	next.Profile = user
	next.Preferences = m.warmPreferences(ctx, next.UserID)
	next.UpdatedTs = time.Now().Unix()

	if err := ctx.Err(); err != nil {
		return failErr(errs.ContextCanceled(err))
	}
	if _, err := m.cache.Set(ctx, next); err != nil {
		return failResult(errs.CodeOf(err, errs.ErrCodeInvalidArgument), err.Error())
	}

	m.publish(ctx, current, next, ContextRefresh)
	op.Info("user context refreshed",
		slog.Int64(observability.LogFieldDuration, op.DurationMs()))
	return okResult(next)
}

// warmPreferences loads the user's preference entries into the context's warm
// map. Load failures degrade to an empty map; the context stays usable.
func (m *Manager) warmPreferences(ctx context.Context, userID int32) map[string]map[string]string {
	prefs := map[string]map[string]string{}
	entries, err := m.profiles.ListPreferences(ctx, userID)
	if err != nil {
		m.logger.Warn("failed to warm preferences",
			slog.Int64(observability.LogFieldUserID, int64(userID)),
			slog.String("error", err.Error()))
		return prefs
	}
	for _, entry := range entries {
		byKey, ok := prefs[entry.Category]
		if !ok {
			byKey = map[string]string{}
			prefs[entry.Category] = byKey
		}
		byKey[entry.Key] = entry.Value
	}
	return prefs
}

func (m *Manager) logAudit(ctx context.Context, userID int32, eventType, description string) {
	if err := m.audit.LogOperation(ctx, userID, eventType, description); err != nil {
		m.logger.Warn("audit log failed",
			slog.Int64(observability.LogFieldUserID, int64(userID)),
			slog.String(observability.LogFieldEventType, eventType),
			slog.String("error", err.Error()))
	}
}

func (m *Manager) publish(ctx context.Context, old, next *UserContext, changeType ContextChangeType) {
	m.events.Publish(ctx, UserContextChangedEvent{
		OldContext: old,
		NewContext: next,
		ChangeType: changeType,
		Timestamp:  time.Now(),
	})
}

var _ ProfileStore = (*store.Store)(nil)
