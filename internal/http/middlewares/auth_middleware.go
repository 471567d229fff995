package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/monocontact/internal/auth"
	"github.com/geocoder89/monocontact/internal/cache"
	"github.com/geocoder89/monocontact/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifySessionToken(token string) (*auth.Claims, error)
}

type SessionResolver interface {
	GetByToken(ctx context.Context, token string) (user.User, error)
}

type AuthMiddleware struct {
	jwt      TokenVerifier
	sessions SessionResolver
	cache    *cache.Cache
}

func NewAuthMiddleware(jwt TokenVerifier, sessions SessionResolver, sessionCache *cache.Cache) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, sessions: sessions, cache: sessionCache}
}

// RequireAuth resolves the bearer token to a user record. A missing
// header, a malformed header, and an unknown token all produce the same
// 401 so callers cannot probe which case they hit.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c)
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c)
			return
		}

		// cheap signature/expiry reject before touching the store
		_, err := m.jwt.VerifySessionToken(raw)

		if err != nil {
			abortUnauthorized(c)
			return
		}

		// the stored token is the credential of record: a token that was
		// cleared by sign-out is invalid even while its JWT is unexpired
		u, err := m.resolve(c, raw)

		if err != nil {
			abortUnauthorized(c)
			return
		}

		// Stash useful bits of identity on the context
		SetIdentity(c, Identity{
			ID:           u.ID,
			Email:        u.Email,
			Subscription: u.Subscription,
			Token:        raw,
		})

		c.Next()
	}
}

func (m *AuthMiddleware) resolve(c *gin.Context, raw string) (user.User, error) {
	if m.cache != nil {
		if v, ok := m.cache.Get(cacheKey(raw)); ok {
			if u, ok := v.(user.User); ok {
				return u, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := m.sessions.GetByToken(ctx, raw)

	if err != nil {
		return user.User{}, err
	}

	if m.cache != nil {
		m.cache.Set(cacheKey(raw), u)
	}

	return u, nil
}

// ForgetToken drops a cached session after sign-out.
func (m *AuthMiddleware) ForgetToken(raw string) {
	if m.cache != nil {
		m.cache.Delete(cacheKey(raw))
	}
}

func cacheKey(raw string) string {
	return "session:" + raw
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  "error",
		"code":    http.StatusUnauthorized,
		"message": "Not authorized",
	})
}
