package users

import (
	"time"

	"github.com/google/uuid"
)

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderCredentials Provider = "credentials"
	ProviderGoogle      Provider = "google"
)

// User is a storefront account holder.
type User struct {
	ID            uuid.UUID  `json:"id"            db:"id"`
	Username      string     `json:"username"      db:"username"`
	Email         string     `json:"email"         db:"email"`
	PasswordHash  string     `json:"-"             db:"password_hash"`
	ImageURL      string     `json:"image,omitempty" db:"image_url"`
	Provider      Provider   `json:"provider"      db:"provider"`
	EmailVerified bool       `json:"emailVerified" db:"email_verified"`
	OTP           string     `json:"-"             db:"otp"`
	OTPExpiry     *time.Time `json:"-"             db:"otp_expiry"`
	CreatedAt     time.Time  `json:"createdAt"     db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt"     db:"updated_at"`
}

// Profile is the account view returned by the profile endpoints. Credentials
// and verification state never leave the service through it.
type Profile struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ImageURL  string    `json:"image,omitempty"`
	Provider  Provider  `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileOf builds the public profile view of a user.
func ProfileOf(u *User) *Profile {
	return &Profile{
		Username:  u.Username,
		Email:     u.Email,
		ImageURL:  u.ImageURL,
		Provider:  u.Provider,
		CreatedAt: u.CreatedAt,
	}
}
