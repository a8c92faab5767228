package types

import (
	"database/sql/driver"
	"time"
)

// Role is the authorization level of a user. Roles are assigned at
// registration and never change afterwards.
type Role int

const (
	// RoleUnknown is the zero value and never authorizes anything.
	RoleUnknown Role = iota

	// RoleUser is a regular author whose submissions require moderation.
	RoleUser

	// RoleAdmin may moderate any work and publishes without moderation.
	RoleAdmin
)

var roleNames = enumNames[Role]{
	RoleUser:  "user",
	RoleAdmin: "admin",
}

// ParseRole converts a wire name into a Role.
func ParseRole(raw string) (Role, error) { return roleNames.parse("role", raw) }

func (r Role) String() string { return roleNames.name(r) }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) MarshalText() ([]byte, error) { return roleNames.marshal("role", r) }

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (r Role) Value() (driver.Value, error) { return roleNames.value("role", r) }

func (r *Role) Scan(src any) error {
	v, err := roleNames.scan("role", src)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id" db:"id"`

	// Email is the user's email address. It doubles as the login name.
	Email string `json:"email" db:"email"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role"`

	// Avatar is an optional image URL shown next to the user's works.
	Avatar string `json:"avatar,omitempty" db:"avatar"`

	// Bio is an optional free-form profile text.
	Bio string `json:"bio,omitempty" db:"bio"`

	// PasswordHash stores the bcrypt hash of the optional account password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent profile update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ProfileUpdate carries the optional fields of a profile edit.
// Nil fields keep their current value.
type ProfileUpdate struct {
	Name   *string `json:"name,omitempty"`
	Bio    *string `json:"bio,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}
