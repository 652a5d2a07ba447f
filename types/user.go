package types

import "time"

// User represents an account in the system.
// It contains identity, profile, and credential metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. It is unique across all users
	// and doubles as the sign-in identifier and token subject.
	Email string `json:"email" db:"email"`

	// Address is the user's postal address.
	Address string `json:"address" db:"address"`

	// Phone is the user's phone number.
	Phone string `json:"phone" db:"phone"`

	// PasswordHash stores the salted hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Salt is the per-user random value mixed into the password hash.
	// Regenerated on every password change; never exposed.
	Salt string `json:"-" db:"salt"`

	// ResetToken is the outstanding password-reset token, if any.
	// ResetToken and ResetTokenExpires are either both set or both nil.
	ResetToken *string `json:"reset_token,omitempty" db:"reset_token"`

	// ResetTokenExpires bounds the validity window of ResetToken.
	ResetTokenExpires *time.Time `json:"reset_token_expires,omitempty" db:"reset_token_expires"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
