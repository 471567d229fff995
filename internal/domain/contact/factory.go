package contact

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateContactRequest, ownerID string) Contact {
	now := time.Now().UTC()

	return Contact{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Favorite:  false,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
