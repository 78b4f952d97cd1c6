package usercontext

import (
	"time"

	"github.com/hrygo/userctx/store"
)

// DefaultNearExpiryThreshold is the remaining session lifetime under which a
// refresh attempts to renew the session.
const DefaultNearExpiryThreshold = 30 * time.Minute

// UserContext is the active user session as one cache tier holds it. The
// profile pointer is shared with the store cache, never owned.
type UserContext struct {
	UserID  int32
	Profile *store.User

	SessionToken     string
	SessionID        string
	SessionExpiresAt *time.Time
	MachineID        string

	// Preferences is the warm copy of the user's preference entries,
	// keyed category -> key -> raw value.
	Preferences map[string]map[string]string

	CreatedTs int64
	UpdatedTs int64
	IsDefault bool
}

// IsValid reports whether this context may be served from a cache tier: the
// user id is set, the backing profile is active, and the session (if any) has
// not expired.
func (c *UserContext) IsValid() bool {
	if c == nil || c.UserID <= 0 {
		return false
	}
	if !c.Profile.IsActive() {
		return false
	}
	if c.SessionExpiresAt != nil && !c.SessionExpiresAt.After(time.Now()) {
		return false
	}
	return true
}

// IsSessionNearExpiry reports whether the session expires within threshold.
// A non-positive threshold means DefaultNearExpiryThreshold. Contexts without
// an expiration never report near-expiry.
func (c *UserContext) IsSessionNearExpiry(threshold time.Duration) bool {
	if c == nil || c.SessionExpiresAt == nil {
		return false
	}
	if threshold <= 0 {
		threshold = DefaultNearExpiryThreshold
	}
	return time.Until(*c.SessionExpiresAt) <= threshold
}

// PreferenceValue returns the warm preference value for (category, key).
func (c *UserContext) PreferenceValue(category, key string) (string, bool) {
	if c == nil || c.Preferences == nil {
		return "", false
	}
	byKey, ok := c.Preferences[category]
	if !ok {
		return "", false
	}
	value, ok := byKey[key]
	return value, ok
}

// snapshot returns a shallow copy. Refresh applies its updates to the copy
// and swaps it in whole, leaving the installed context untouched for
// concurrent readers.
func (c *UserContext) snapshot() *UserContext {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}
