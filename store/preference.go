package store

import "time"

// ValueType tags how a preference value string should be decoded.
type ValueType string

const (
	ValueTypeString ValueType = "string"
	ValueTypeInt    ValueType = "int"
	ValueTypeBool   ValueType = "bool"
	ValueTypeFloat  ValueType = "float"
	ValueTypeJSON   ValueType = "json"
)

// PreferenceEntry represents a single preference value, unique per
// (user, category, key). The value is never stored blank; a blank value in a
// write batch is a deletion tombstone, not a storable value.
type PreferenceEntry struct {
	ID          int32
	UserID      int32
	Category    string
	Key         string
	Value       string
	ValueType   ValueType
	Description string
	IsSystem    bool
	UpdatedTs   int64
}

// FindPreference specifies the conditions for finding preference entries.
type FindPreference struct {
	UserID   *int32
	Category *string
	Key      *string
}

// UpsertPreference specifies the data for upserting a preference entry.
// A blank Description leaves an existing entry's description untouched.
type UpsertPreference struct {
	UserID      int32
	Category    string
	Key         string
	Value       string
	ValueType   ValueType
	Description string
	IsSystem    bool
}

// DeletePreference specifies the preference entry to delete.
type DeletePreference struct {
	UserID   int32
	Category string
	Key      string
}

// PreferenceChangeType classifies a committed preference change.
type PreferenceChangeType string

const (
	PreferenceCreated PreferenceChangeType = "CREATED"
	PreferenceUpdated PreferenceChangeType = "UPDATED"
	PreferenceDeleted PreferenceChangeType = "DELETED"
	PreferenceReset   PreferenceChangeType = "RESET"
)

// PreferenceChangedEvent describes a committed preference change. Events are
// immutable, created at commit time and delivered best-effort in memory.
type PreferenceChangedEvent struct {
	UserID     int32
	Category   string
	Key        string
	OldValue   string
	NewValue   string
	ChangeType PreferenceChangeType
	ChangedAt  time.Time
}
