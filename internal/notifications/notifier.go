package notifications

import "context"

type SendVerificationMessageInput struct {
	Email             string
	VerificationToken string
}

type Notifier interface {
	SendVerificationMessage(ctx context.Context, input SendVerificationMessageInput) error
}
