package middlewares

import "github.com/gin-gonic/gin"

const (
	ctxUserIDKey       = "auth.userID"
	ctxEmailKey        = "auth.email"
	ctxSubscriptionKey = "auth.subscription"
	ctxTokenKey        = "auth.token"
)

// Identity is what the auth middleware resolves for downstream handlers.
type Identity struct {
	ID           string
	Email        string
	Subscription string
	// the raw bearer token the identity was resolved from
	Token string
}

// SetIdentity stashes a resolved identity on the request context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ctxUserIDKey, id.ID)
	c.Set(ctxEmailKey, id.Email)
	c.Set(ctxSubscriptionKey, id.Subscription)
	c.Set(ctxTokenKey, id.Token)
}

// Optional helpers so handlers don’t need to know the magic keys.

func IdentityFromContext(c *gin.Context) (Identity, bool) {
	id, ok := stringFromContext(c, ctxUserIDKey)

	if !ok || id == "" {
		return Identity{}, false
	}

	email, _ := stringFromContext(c, ctxEmailKey)
	subscription, _ := stringFromContext(c, ctxSubscriptionKey)
	token, _ := stringFromContext(c, ctxTokenKey)

	return Identity{
		ID:           id,
		Email:        email,
		Subscription: subscription,
		Token:        token,
	}, true
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, ctxUserIDKey)
}

func stringFromContext(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
