package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
// Lookup methods return nil (or nil slices) rather than an error for
// "not found".
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	DeleteUser(ctx context.Context, delete *DeleteUser) error

	// Preference model related methods. Uniqueness on
	// (user_id, category, key) is enforced by the schema.
	UpsertPreference(ctx context.Context, upsert *UpsertPreference) (*PreferenceEntry, error)
	ListPreferences(ctx context.Context, find *FindPreference) ([]*PreferenceEntry, error)
	DeletePreference(ctx context.Context, delete *DeletePreference) (bool, error)
}
