package contact

import (
	"errors"
	"time"
)

type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Favorite  bool      `json:"favorite"`
	OwnerID   string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("contact not found")

type CreateContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// MissingFields reports which mandatory fields are absent, in a stable order.
func (r CreateContactRequest) MissingFields() []string {
	var missing []string

	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Email == "" {
		missing = append(missing, "email")
	}
	if r.Phone == "" {
		missing = append(missing, "phone")
	}

	return missing
}

// with pointers if optional, it will be nil
type UpdateContactRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone" binding:"omitempty,min=1"`
	Favorite *bool   `json:"favorite"`
}

// Favorite is a pointer so that an explicit false is distinguishable
// from an absent field.
type SetFavoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

type ListContactsFilter struct {
	OwnerID      string
	FavoriteOnly bool
	Limit        int
	Offset       int
}
