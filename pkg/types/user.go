package types

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type UserRole string

const (
	UserRoleDonor        UserRole = "donor"
	UserRoleOrganization UserRole = "organization"
	UserRoleAdmin        UserRole = "admin"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        *string   `db:"email" json:"email,omitempty"`
	GivenName    *string   `db:"given_name" json:"givenName,omitempty"`
	FamilyName   *string   `db:"family_name" json:"familyName,omitempty"`
	Role         UserRole  `db:"role" json:"role"`
	IsAdmin      bool      `db:"is_admin" json:"isAdmin"`
	IsSuperAdmin bool      `db:"is_super_admin" json:"isSuperAdmin"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// HasAdminAccess is true when any of the three admin flags is set.
func (u *User) HasAdminAccess() bool {
	if u == nil {
		return false
	}
	return u.Role == UserRoleAdmin || u.IsAdmin || u.IsSuperAdmin
}
