package store

// RowStatus is the row status of a user.
type RowStatus string

const (
	// Normal is the status for an active user.
	Normal RowStatus = "NORMAL"
	// Archived is the status for a deactivated user.
	Archived RowStatus = "ARCHIVED"
)

// User represents a user profile.
type User struct {
	ID        int32
	Username  string
	Nickname  string
	Email     string
	RowStatus RowStatus
	CreatedTs int64
	UpdatedTs int64
}

// IsActive reports whether the profile exists and is not archived.
func (u *User) IsActive() bool {
	return u != nil && u.RowStatus == Normal
}

// FindUser specifies the conditions for finding users.
type FindUser struct {
	ID        *int32
	Username  *string
	RowStatus *RowStatus
}

// UpdateUser specifies the data for updating a user.
type UpdateUser struct {
	ID        int32
	Username  *string
	Nickname  *string
	Email     *string
	RowStatus *RowStatus
}

// DeleteUser specifies the user to delete.
type DeleteUser struct {
	ID int32
}
