package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/userctx/internal/profile"
	"github.com/hrygo/userctx/notify"
	"github.com/hrygo/userctx/store/cache"
)

// Store provides database access to users and preference entries, with
// read-through TTL caches in front of the driver and a notification bus for
// committed preference changes.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Cache settings
	cacheConfig cache.Config

	// Caches
	userCache       *cache.Cache // cache for user profiles
	preferenceCache *cache.Cache // cache for preference entries

	events *notify.Bus[PreferenceChangedEvent]
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheTTL := 10 * time.Minute
	if profile != nil && profile.StoreCacheTTL > 0 {
		cacheTTL = profile.StoreCacheTTL
	}
	cacheConfig := cache.Config{
		DefaultTTL: cacheTTL,
		MaxItems:   1000,
	}

	return &Store{
		driver:          driver,
		profile:         profile,
		cacheConfig:     cacheConfig,
		userCache:       cache.New(cacheConfig),
		preferenceCache: cache.New(cacheConfig),
		events: notify.New(func(e PreferenceChangedEvent) string {
			return e.Category
		}, notify.Config{}),
	}
}

// GetDriver returns the underlying driver.
func (s *Store) GetDriver() Driver {
	return s.driver
}

// Events returns the bus carrying committed preference changes.
func (s *Store) Events() *notify.Bus[PreferenceChangedEvent] {
	return s.events
}

// Close stops the cache janitors and closes the driver.
func (s *Store) Close() error {
	s.userCache.Close()
	s.preferenceCache.Close()

	return s.driver.Close()
}

func userCacheKey(id int32) string {
	return fmt.Sprintf("user:%d", id)
}

func preferenceCacheKey(userID int32, category, key string) string {
	return fmt.Sprintf("pref:%d:%s:%s", userID, category, key)
}

// CreateUser creates a new user.
func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(ctx, userCacheKey(user.ID), user)
	return user, nil
}

// UpdateUser updates a user and refreshes the cache.
func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	user, err := s.driver.UpdateUser(ctx, update)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(ctx, userCacheKey(user.ID), user)
	return user, nil
}

// ListUsers lists users matching find.
func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// GetUser returns the first user matching find, or nil when absent.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.ID != nil {
		if value, found := s.userCache.Get(ctx, userCacheKey(*find.ID)); found {
			if user, ok := value.(*User); ok {
				return user, nil
			}
		}
	}

	users, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}

	user := users[0]
	s.userCache.Set(ctx, userCacheKey(user.ID), user)
	return user, nil
}

// GetUserByID returns the user with the given id, or nil when absent.
func (s *Store) GetUserByID(ctx context.Context, id int32) (*User, error) {
	return s.GetUser(ctx, &FindUser{ID: &id})
}

// DeleteUser deletes a user; the schema cascades to its preference entries.
func (s *Store) DeleteUser(ctx context.Context, delete *DeleteUser) error {
	if err := s.driver.DeleteUser(ctx, delete); err != nil {
		return err
	}
	s.userCache.Delete(ctx, userCacheKey(delete.ID))
	// Entries for the user may still sit in the preference cache; they are
	// keyed per triple, so drop everything rather than scanning.
	s.preferenceCache.Clear(ctx)
	return nil
}

// GetPreference returns the entry for the exact (user, category, key) triple,
// or nil when absent.
func (s *Store) GetPreference(ctx context.Context, userID int32, category, key string) (*PreferenceEntry, error) {
	cacheKey := preferenceCacheKey(userID, category, key)
	if value, found := s.preferenceCache.Get(ctx, cacheKey); found {
		if entry, ok := value.(*PreferenceEntry); ok {
			return entry, nil
		}
	}

	entries, err := s.driver.ListPreferences(ctx, &FindPreference{
		UserID:   &userID,
		Category: &category,
		Key:      &key,
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	entry := entries[0]
	s.preferenceCache.Set(ctx, cacheKey, entry)
	return entry, nil
}

// ListPreferences returns all preference entries for a user.
func (s *Store) ListPreferences(ctx context.Context, userID int32) ([]*PreferenceEntry, error) {
	return s.driver.ListPreferences(ctx, &FindPreference{UserID: &userID})
}

// UpsertPreference persists a preference value and publishes a
// PreferenceChangedEvent (CREATED or UPDATED) after the write has committed.
func (s *Store) UpsertPreference(ctx context.Context, upsert *UpsertPreference) (*PreferenceEntry, error) {
	if upsert.Category == "" || upsert.Key == "" {
		return nil, errors.New("preference category and key must not be empty")
	}
	// A blank value is a deletion tombstone, never a storable value.
	if strings.TrimSpace(upsert.Value) == "" {
		return nil, errors.New("preference value must not be blank; delete the entry instead")
	}
	if upsert.ValueType == "" {
		upsert.ValueType = ValueTypeString
	}

	prior, err := s.GetPreference(ctx, upsert.UserID, upsert.Category, upsert.Key)
	if err != nil {
		return nil, err
	}
	if prior != nil && upsert.Description == "" {
		upsert.Description = prior.Description
	}

	entry, err := s.driver.UpsertPreference(ctx, upsert)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert preference")
	}
	s.preferenceCache.Set(ctx, preferenceCacheKey(entry.UserID, entry.Category, entry.Key), entry)

	changeType := PreferenceCreated
	oldValue := ""
	if prior != nil {
		changeType = PreferenceUpdated
		oldValue = prior.Value
	}
	s.events.Publish(ctx, PreferenceChangedEvent{
		UserID:     entry.UserID,
		Category:   entry.Category,
		Key:        entry.Key,
		OldValue:   oldValue,
		NewValue:   entry.Value,
		ChangeType: changeType,
		ChangedAt:  time.Now(),
	})

	return entry, nil
}

// DeletePreference removes a preference entry. It reports whether an entry
// existed; deleting an absent entry is a no-op and publishes nothing.
func (s *Store) DeletePreference(ctx context.Context, delete *DeletePreference) (bool, error) {
	prior, err := s.GetPreference(ctx, delete.UserID, delete.Category, delete.Key)
	if err != nil {
		return false, err
	}

	deleted, err := s.driver.DeletePreference(ctx, delete)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete preference")
	}
	s.preferenceCache.Delete(ctx, preferenceCacheKey(delete.UserID, delete.Category, delete.Key))

	if deleted {
		oldValue := ""
		if prior != nil {
			oldValue = prior.Value
		}
		s.events.Publish(ctx, PreferenceChangedEvent{
			UserID:     delete.UserID,
			Category:   delete.Category,
			Key:        delete.Key,
			OldValue:   oldValue,
			NewValue:   "",
			ChangeType: PreferenceDeleted,
			ChangedAt:  time.Now(),
		})
	}

	return deleted, nil
}
