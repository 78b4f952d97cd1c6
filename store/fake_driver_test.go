package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// fakeDriver is an in-memory Driver implementation for tests.
type fakeDriver struct {
	mu          sync.Mutex
	users       map[int32]*User
	prefs       map[string]*PreferenceEntry
	nextUserID  int32
	nextPrefID  int32
	upsertCalls int
	deleteCalls int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		users: make(map[int32]*User),
		prefs: make(map[string]*PreferenceEntry),
	}
}

func prefMapKey(userID int32, category, key string) string {
	return fmt.Sprintf("%d|%s|%s", userID, category, key)
}

func (f *fakeDriver) GetDB() *sql.DB { return nil }

func (f *fakeDriver) Close() error { return nil }

func (f *fakeDriver) IsInitialized(context.Context) (bool, error) { return true, nil }

func (f *fakeDriver) CreateUser(_ context.Context, create *User) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextUserID++
	user := *create
	user.ID = f.nextUserID
	if user.RowStatus == "" {
		user.RowStatus = Normal
	}
	now := time.Now().Unix()
	user.CreatedTs, user.UpdatedTs = now, now
	f.users[user.ID] = &user
	return &user, nil
}

func (f *fakeDriver) UpdateUser(_ context.Context, update *UpdateUser) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[update.ID]
	if !ok {
		return nil, fmt.Errorf("user %d not found", update.ID)
	}
	updated := *user
	if update.Username != nil {
		updated.Username = *update.Username
	}
	if update.Nickname != nil {
		updated.Nickname = *update.Nickname
	}
	if update.Email != nil {
		updated.Email = *update.Email
	}
	if update.RowStatus != nil {
		updated.RowStatus = *update.RowStatus
	}
	updated.UpdatedTs = time.Now().Unix()
	f.users[update.ID] = &updated
	return &updated, nil
}

func (f *fakeDriver) ListUsers(_ context.Context, find *FindUser) ([]*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := []*User{}
	for _, user := range f.users {
		if find != nil {
			if find.ID != nil && user.ID != *find.ID {
				continue
			}
			if find.Username != nil && user.Username != *find.Username {
				continue
			}
			if find.RowStatus != nil && user.RowStatus != *find.RowStatus {
				continue
			}
		}
		list = append(list, user)
	}
	return list, nil
}

func (f *fakeDriver) DeleteUser(_ context.Context, del *DeleteUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[del.ID]; !ok {
		return nil
	}
	for key, entry := range f.prefs {
		if entry.UserID == del.ID {
			delete(f.prefs, key)
		}
	}
	delete(f.users, del.ID)
	return nil
}

func (f *fakeDriver) UpsertPreference(_ context.Context, upsert *UpsertPreference) (*PreferenceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.upsertCalls++
	mapKey := prefMapKey(upsert.UserID, upsert.Category, upsert.Key)
	existing := f.prefs[mapKey]

	entry := &PreferenceEntry{
		UserID:      upsert.UserID,
		Category:    upsert.Category,
		Key:         upsert.Key,
		Value:       upsert.Value,
		ValueType:   upsert.ValueType,
		Description: upsert.Description,
		IsSystem:    upsert.IsSystem,
		UpdatedTs:   time.Now().Unix(),
	}
	if existing != nil {
		entry.ID = existing.ID
	} else {
		f.nextPrefID++
		entry.ID = f.nextPrefID
	}
	f.prefs[mapKey] = entry
	return entry, nil
}

func (f *fakeDriver) ListPreferences(_ context.Context, find *FindPreference) ([]*PreferenceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := []*PreferenceEntry{}
	for _, entry := range f.prefs {
		if find != nil {
			if find.UserID != nil && entry.UserID != *find.UserID {
				continue
			}
			if find.Category != nil && entry.Category != *find.Category {
				continue
			}
			if find.Key != nil && entry.Key != *find.Key {
				continue
			}
		}
		list = append(list, entry)
	}
	return list, nil
}

func (f *fakeDriver) DeletePreference(_ context.Context, del *DeletePreference) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleteCalls++
	mapKey := prefMapKey(del.UserID, del.Category, del.Key)
	if _, ok := f.prefs[mapKey]; !ok {
		return false, nil
	}
	delete(f.prefs, mapKey)
	return true, nil
}
