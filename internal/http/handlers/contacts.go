package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/monocontact/internal/config"
	"github.com/geocoder89/monocontact/internal/domain/contact"
	"github.com/geocoder89/monocontact/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 20

	// caps on client paging input; out-of-range values fall back like any
	// other bad value, and the product of both caps stays far from overflow
	maxLimit = 100
	maxPage  = 1 << 20
)

type ContactStore interface {
	Create(ctx context.Context, c contact.Contact) (contact.Contact, error)
	GetByID(ctx context.Context, id string) (contact.Contact, error)
	List(ctx context.Context, filter contact.ListContactsFilter) ([]contact.Contact, int, error)
	Update(ctx context.Context, id string, req contact.UpdateContactRequest) (contact.Contact, error)
	SetFavorite(ctx context.Context, id string, favorite bool) (contact.Contact, error)
	Delete(ctx context.Context, id string) error
}

type ContactsHandler struct {
	store ContactStore
}

func NewContactsHandler(store ContactStore) *ContactsHandler {
	return &ContactsHandler{store: store}
}

func (h *ContactsHandler) ListContacts(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	page := queryInt(ctx, "page", defaultPage, maxPage)
	limit := queryInt(ctx, "limit", defaultLimit, maxLimit)

	filter := contact.ListContactsFilter{
		OwnerID:      identity.ID,
		FavoriteOnly: queryTruthy(ctx, "favorite"),
		Limit:        limit,
		Offset:       (page - 1) * limit,
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	contacts, total, err := h.store.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Internal Server Error")
		return
	}

	// an empty page is a legitimate outcome, not an error
	if len(contacts) == 0 {
		ctx.Status(http.StatusNoContent)
		return
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	Respond(ctx, http.StatusOK, "", gin.H{
		"page":       page,
		"totalPages": totalPages,
		"perPage":    limit,
		"contacts":   contacts,
	})
}

func (h *ContactsHandler) GetContact(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, ok := h.ownedContact(ctx, cctx, identity.ID)

	if !ok {
		return
	}

	Respond(ctx, http.StatusOK, "", gin.H{"contact": c})
}

func (h *ContactsHandler) CreateContact(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	var req contact.CreateContactRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if missing := req.MissingFields(); len(missing) > 0 {
		RespondBadRequest(ctx, "Missing required field/s: "+strings.Join(missing, ", "), nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	newContact, err := h.store.Create(cctx, contact.NewFromCreateRequest(req, identity.ID))

	if err != nil {
		RespondInternal(ctx, "Internal Server Error")
		return
	}

	Respond(ctx, http.StatusCreated, "Created", gin.H{"newContact": newContact})
}

func (h *ContactsHandler) UpdateContact(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	var req contact.UpdateContactRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, ok := h.ownedContact(ctx, cctx, identity.ID)

	if !ok {
		return
	}

	updatedContact, err := h.store.Update(cctx, c.ID, req)

	if err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			RespondNotFound(ctx, "Not found")
			return
		}
		RespondInternal(ctx, "Internal Server Error")
		return
	}

	Respond(ctx, http.StatusOK, "Contact updated", gin.H{"updatedContact": updatedContact})
}

func (h *ContactsHandler) SetFavorite(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	var req contact.SetFavoriteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// presence check, not truthiness: favorite=false is a valid unfavorite
	if req.Favorite == nil {
		RespondBadRequest(ctx, "Missing field favorite", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, ok := h.ownedContact(ctx, cctx, identity.ID)

	if !ok {
		return
	}

	updatedContact, err := h.store.SetFavorite(cctx, c.ID, *req.Favorite)

	if err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			RespondNotFound(ctx, "Not found")
			return
		}
		RespondInternal(ctx, "Internal Server Error")
		return
	}

	Respond(ctx, http.StatusOK, "Contact updated", gin.H{"updatedContact": updatedContact})
}

func (h *ContactsHandler) DeleteContact(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, ok := h.ownedContact(ctx, cctx, identity.ID)

	if !ok {
		return
	}

	err := h.store.Delete(cctx, c.ID)

	if err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			RespondNotFound(ctx, "Not found")
			return
		}
		RespondInternal(ctx, "Internal Server Error")
		return
	}

	Respond(ctx, http.StatusOK, "Contact deleted", nil)
}

// ownedContact fetches the addressed contact and enforces the ownership
// guard: 404 when it does not exist, 403 when it belongs to someone else.
// The two are never conflated. A false return means a response was written.
func (h *ContactsHandler) ownedContact(ctx *gin.Context, cctx context.Context, ownerID string) (contact.Contact, bool) {
	id := ctx.Param("contactId")

	c, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			RespondNotFound(ctx, "Not found")
			return contact.Contact{}, false
		}
		RespondInternal(ctx, "Internal Server Error")
		return contact.Contact{}, false
	}

	if c.OwnerID != ownerID {
		RespondForbidden(ctx, "Forbidden")
		return contact.Contact{}, false
	}

	return c, true
}

func queryInt(ctx *gin.Context, key string, fallback, max int) int {
	v := ctx.Query(key)

	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)

	if err != nil || n < 1 || n > max {
		return fallback
	}

	return n
}

func queryTruthy(ctx *gin.Context, key string) bool {
	v := strings.ToLower(ctx.Query(key))

	return v == "true" || v == "1"
}
