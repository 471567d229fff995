package user

import (
	"time"

	"github.com/google/uuid"
)

// NewUnverified builds a fresh user record: starter subscription, no
// session token, and a verification token that must be consumed before
// the first sign-in.
func NewUnverified(email, passwordHash, avatarURL string) User {
	now := time.Now().UTC()
	verificationToken := uuid.NewString()

	return User{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      passwordHash,
		Subscription:      SubscriptionStarter,
		Verified:          false,
		VerificationToken: &verificationToken,
		AvatarURL:         avatarURL,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
