package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/geocoder89/monocontact/internal/avatars"
	"github.com/geocoder89/monocontact/internal/config"
	"github.com/geocoder89/monocontact/internal/domain/user"
	"github.com/geocoder89/monocontact/internal/http/middlewares"
	"github.com/geocoder89/monocontact/internal/notifications"
	"github.com/geocoder89/monocontact/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByVerificationToken(ctx context.Context, token string) (user.User, error)
	MarkVerified(ctx context.Context, id string) (user.User, error)
	SetToken(ctx context.Context, id string, token *string) (user.User, error)
	UpdateSubscription(ctx context.Context, id, subscription string) (user.User, error)
	UpdateAvatarURL(ctx context.Context, id, avatarURL string) (user.User, error)
}

type SessionIssuer interface {
	GenerateSessionToken(userID, email, subscription string) (string, error)
}

type AvatarSaver interface {
	Save(userID string, upload io.Reader, contentType string) (string, error)
}

// TokenInvalidator drops a cached session token after sign-out.
type TokenInvalidator interface {
	ForgetToken(raw string)
}

type UsersHandler struct {
	store    UserStore
	jwt      SessionIssuer
	notifier notifications.Notifier
	avatars  AvatarSaver
	sessions TokenInvalidator
}

func NewUsersHandler(store UserStore, jwt SessionIssuer, notifier notifications.Notifier, avatarSaver AvatarSaver, sessions TokenInvalidator) *UsersHandler {
	return &UsersHandler{
		store:    store,
		jwt:      jwt,
		notifier: notifier,
		avatars:  avatarSaver,
		sessions: sessions,
	}
}

// public profile shape; the password hash and tokens never leave the store
type userView struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
}

func (h *UsersHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	avatarURL := avatars.DefaultURL(req.Email)

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.store.Create(cctx, user.NewUnverified(req.Email, hash, avatarURL))

	if err != nil {
		if errors.Is(err, user.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "Email is already in use")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	err = h.notifier.SendVerificationMessage(cctx, notifications.SendVerificationMessageInput{
		Email:             u.Email,
		VerificationToken: *u.VerificationToken,
	})

	if err != nil {
		RespondInternal(ctx, "Could not send verification email")
		return
	}

	Respond(ctx, http.StatusCreated, "User created", gin.H{
		"email":        u.Email,
		"subscription": u.Subscription,
		"avatar":       u.AvatarURL,
	})
}

func (h *UsersHandler) SignIn(ctx *gin.Context) {
	var req user.SignInRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.store.GetByEmail(cctx, req.Email)
	if err != nil {
		// same response as a wrong password: do not reveal which failed
		RespondUnauthorized(ctx, "Incorrect email or password")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnauthorized(ctx, "Incorrect email or password")
		return
	}

	if !foundUser.Verified {
		RespondForbidden(ctx, "User not verified")
		return
	}

	token, err := h.jwt.GenerateSessionToken(foundUser.ID, foundUser.Email, foundUser.Subscription)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	_, err = h.store.SetToken(cctx, foundUser.ID, &token)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	// the replaced token may still sit in the session cache
	if h.sessions != nil && foundUser.Token != nil {
		h.sessions.ForgetToken(*foundUser.Token)
	}

	Respond(ctx, http.StatusOK, "", gin.H{
		"token": token,
		"user": userView{
			Email:        foundUser.Email,
			Subscription: foundUser.Subscription,
		},
	})
}

// SignOut clears the active session token. Clearing an already-cleared
// token is fine, the operation is idempotent.
func (h *UsersHandler) SignOut(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	_, err := h.store.SetToken(cctx, identity.ID, nil)

	if err != nil && !errors.Is(err, user.ErrNotFound) {
		RespondInternal(ctx, "Could not sign out")
		return
	}

	if h.sessions != nil {
		h.sessions.ForgetToken(identity.Token)
	}

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) Current(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	Respond(ctx, http.StatusOK, "", gin.H{
		"user": userView{
			Email:        identity.Email,
			Subscription: identity.Subscription,
		},
	})
}

func (h *UsersHandler) Verify(ctx *gin.Context) {
	token := ctx.Param("verificationToken")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.store.GetByVerificationToken(cctx, token)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "Verification token is invalid or user does not exist")
			return
		}
		RespondInternal(ctx, "Could not verify user")
		return
	}

	if foundUser.Verified {
		RespondBadRequest(ctx, "User has already been verified", nil)
		return
	}

	_, err = h.store.MarkVerified(cctx, foundUser.ID)

	if err != nil {
		RespondInternal(ctx, "Could not verify user")
		return
	}

	Respond(ctx, http.StatusOK, "Verification successful", nil)
}

// ResendVerification re-sends the existing, unconsumed token. It never
// mints a new one.
func (h *UsersHandler) ResendVerification(ctx *gin.Context) {
	var req user.ResendVerificationRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Email == "" {
		RespondBadRequest(ctx, "Missing required field email", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	foundUser, err := h.store.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not resend verification email")
		return
	}

	if foundUser.Verified {
		RespondBadRequest(ctx, "User has already been verified", nil)
		return
	}

	if foundUser.VerificationToken == nil {
		// verified=false with no token should not happen; treat as server error
		RespondInternal(ctx, "Could not resend verification email")
		return
	}

	err = h.notifier.SendVerificationMessage(cctx, notifications.SendVerificationMessageInput{
		Email:             foundUser.Email,
		VerificationToken: *foundUser.VerificationToken,
	})

	if err != nil {
		RespondInternal(ctx, "Could not resend verification email")
		return
	}

	Respond(ctx, http.StatusOK, "Verification email sent", nil)
}

func (h *UsersHandler) UpdateSubscription(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	var req user.UpdateSubscriptionRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !user.IsValidSubscription(req.Subscription) {
		RespondBadRequest(ctx, "Invalid subscription type", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	updatedUser, err := h.store.UpdateSubscription(cctx, identity.ID, req.Subscription)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update subscription")
		return
	}

	Respond(ctx, http.StatusOK, "", gin.H{"updatedUser": updatedUser})
}

func (h *UsersHandler) UpdateAvatar(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	fileHeader, err := ctx.FormFile("avatar")

	if err != nil {
		RespondBadRequest(ctx, "Missing avatar file", nil)
		return
	}

	file, err := fileHeader.Open()

	if err != nil {
		RespondInternal(ctx, "Could not read avatar file")
		return
	}

	defer func() { _ = file.Close() }()

	avatarURL, err := h.avatars.Save(identity.ID, file, fileHeader.Header.Get("Content-Type"))

	if err != nil {
		if errors.Is(err, avatars.ErrUnsupportedImage) {
			RespondBadRequest(ctx, "Unsupported image type", nil)
			return
		}
		RespondInternal(ctx, "Could not process avatar")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	updatedUser, err := h.store.UpdateAvatarURL(cctx, identity.ID, avatarURL)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update avatar")
		return
	}

	Respond(ctx, http.StatusOK, "", gin.H{"updatedUser": updatedUser})
}
