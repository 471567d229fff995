package contact_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/geocoder89/monocontact/internal/domain/contact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFields_StableOrder(t *testing.T) {
	tests := []struct {
		name string
		req  contact.CreateContactRequest
		want []string
	}{
		{
			name: "all present",
			req:  contact.CreateContactRequest{Name: "Ada", Email: "ada@x.com", Phone: "123"},
			want: nil,
		},
		{
			name: "all absent",
			req:  contact.CreateContactRequest{},
			want: []string{"name", "email", "phone"},
		},
		{
			name: "only email present",
			req:  contact.CreateContactRequest{Email: "ada@x.com"},
			want: []string{"name", "phone"},
		},
		{
			name: "only phone absent",
			req:  contact.CreateContactRequest{Name: "Ada", Email: "ada@x.com"},
			want: []string{"phone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.MissingFields())
		})
	}
}

func TestNewFromCreateRequest(t *testing.T) {
	req := contact.CreateContactRequest{
		Name:  gofakeit.Name(),
		Email: gofakeit.Email(),
		Phone: gofakeit.Phone(),
	}

	c := contact.NewFromCreateRequest(req, "owner-1")

	require.NotEmpty(t, c.ID)
	assert.Equal(t, req.Name, c.Name)
	assert.Equal(t, req.Email, c.Email)
	assert.Equal(t, req.Phone, c.Phone)
	assert.Equal(t, "owner-1", c.OwnerID)
	assert.False(t, c.Favorite)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
}

func TestNewFromCreateRequest_UniqueIDs(t *testing.T) {
	req := contact.CreateContactRequest{Name: "Ada", Email: "ada@x.com", Phone: "123"}

	a := contact.NewFromCreateRequest(req, "owner-1")
	b := contact.NewFromCreateRequest(req, "owner-1")

	assert.NotEqual(t, a.ID, b.ID)
}
