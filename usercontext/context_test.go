package usercontext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/userctx/store"
)

func activeUser(id int32) *store.User {
	return &store.User{
		ID:        id,
		Username:  "alice",
		RowStatus: store.Normal,
	}
}

func validContext(id int32) *UserContext {
	now := time.Now().Unix()
	return &UserContext{
		UserID:    id,
		Profile:   activeUser(id),
		CreatedTs: now,
		UpdatedTs: now,
	}
}

func TestUserContextIsValid(t *testing.T) {
	var nilCtx *UserContext
	assert.False(t, nilCtx.IsValid())

	uc := validContext(1)
	assert.True(t, uc.IsValid())

	uc = validContext(1)
	uc.UserID = 0
	assert.False(t, uc.IsValid())

	uc = validContext(1)
	uc.Profile = nil
	assert.False(t, uc.IsValid())

	uc = validContext(1)
	uc.Profile.RowStatus = store.Archived
	assert.False(t, uc.IsValid())

	uc = validContext(1)
	past := time.Now().Add(-time.Minute)
	uc.SessionExpiresAt = &past
	assert.False(t, uc.IsValid())

	uc = validContext(1)
	future := time.Now().Add(time.Hour)
	uc.SessionExpiresAt = &future
	assert.True(t, uc.IsValid())
}

func TestIsSessionNearExpiry(t *testing.T) {
	uc := validContext(1)
	assert.False(t, uc.IsSessionNearExpiry(0), "no expiration means never near expiry")

	soon := time.Now().Add(10 * time.Minute)
	uc.SessionExpiresAt = &soon
	assert.True(t, uc.IsSessionNearExpiry(0), "zero threshold falls back to the default")
	assert.True(t, uc.IsSessionNearExpiry(15*time.Minute))
	assert.False(t, uc.IsSessionNearExpiry(5*time.Minute))

	far := time.Now().Add(4 * time.Hour)
	uc.SessionExpiresAt = &far
	assert.False(t, uc.IsSessionNearExpiry(0))
}

func TestPreferenceValue(t *testing.T) {
	uc := validContext(1)
	_, ok := uc.PreferenceValue("UI", "Theme")
	assert.False(t, ok)

	uc.Preferences = map[string]map[string]string{
		"UI": {"Theme": "dark"},
	}
	value, ok := uc.PreferenceValue("UI", "Theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", value)

	_, ok = uc.PreferenceValue("UI", "FontSize")
	assert.False(t, ok)
	_, ok = uc.PreferenceValue("Editor", "Theme")
	assert.False(t, ok)
}
