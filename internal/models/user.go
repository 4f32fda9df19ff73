package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents the role of a user
type UserRole string

const (
	UserRoleMember   UserRole = "member"
	UserRoleBusiness UserRole = "business"
	UserRoleAdmin    UserRole = "admin"
)

// DisplayNamePreference controls which name is shown next to a user's reviews
type DisplayNamePreference string

const (
	DisplayPseudonym DisplayNamePreference = "pseudonym"
	DisplayFullName  DisplayNamePreference = "full_name"
)

// IdentityStatus represents the identity-verification state of a user
type IdentityStatus string

const (
	IdentityUnverified IdentityStatus = "unverified"
	IdentityVerified   IdentityStatus = "verified"
)

// User represents an authenticated identity in the system.
// The identity-input fields (LegalName, DocumentNumber, VerifiedMobile) are
// captured during an out-of-band identity check and are cleared entirely
// when an admin rejects the identity.
type User struct {
	ID             uuid.UUID             `json:"id" db:"id"`
	Email          string                `json:"email" db:"email"`
	Pseudonym      *string               `json:"pseudonym,omitempty" db:"pseudonym"`
	DisplayPref    DisplayNamePreference `json:"display_pref" db:"display_pref"`
	Role           UserRole              `json:"role" db:"role"`
	IdentityStatus IdentityStatus        `json:"identity_status" db:"identity_status"`
	LegalName      *string               `json:"legal_name,omitempty" db:"legal_name"`
	DocumentNumber *string               `json:"-" db:"document_number"`
	VerifiedMobile *string               `json:"verified_mobile,omitempty" db:"verified_mobile"`
	CreatedAt      time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at" db:"updated_at"`
}

// IdentityVerified reports whether the user has passed the identity check
func (u *User) IdentityVerified() bool {
	return u.IdentityStatus == IdentityVerified
}
