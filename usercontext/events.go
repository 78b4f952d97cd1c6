package usercontext

import "time"

// ContextChangeType describes what happened to the current user context.
type ContextChangeType string

const (
	UserLogin      ContextChangeType = "USER_LOGIN"
	UserSwitch     ContextChangeType = "USER_SWITCH"
	UserLogout     ContextChangeType = "USER_LOGOUT"
	ContextRefresh ContextChangeType = "CONTEXT_REFRESH"
	SessionExpired ContextChangeType = "SESSION_EXPIRED"
)

// UserContextChangedEvent is published after a context transition has been
// installed in the cache. Either context pointer may be nil: OldContext is nil
// on first login, NewContext is nil on logout.
type UserContextChangedEvent struct {
	OldContext *UserContext
	NewContext *UserContext
	ChangeType ContextChangeType
	Timestamp  time.Time
}
