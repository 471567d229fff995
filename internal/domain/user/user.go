package user

import (
	"errors"
	"time"
)

const (
	SubscriptionStarter  = "starter"
	SubscriptionPro      = "pro"
	SubscriptionBusiness = "business"
)

type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"` // never expose hash in JSON
	Subscription      string    `json:"subscription"`
	Token             *string   `json:"-"` // active session token, nil when signed out
	Verified          bool      `json:"verified"`
	VerificationToken *string   `json:"-"` // non-nil until consumed
	AvatarURL         string    `json:"avatarURL"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

var (
	ErrNotFound         = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already in use")
	ErrAlreadyVerified  = errors.New("user already verified")
)

func IsValidSubscription(s string) bool {
	switch s {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return true
	}
	return false
}

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// required is checked by the handler so the response can name the field.
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

type UpdateSubscriptionRequest struct {
	Subscription string `json:"subscription" binding:"required"`
}
