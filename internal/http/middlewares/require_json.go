package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects mutating requests without a JSON body. The avatar
// upload route is multipart and is skipped.
func RequireJSON(skipPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			// bodyless requests (sign-out) have nothing to validate
			if c.Request.ContentLength == 0 {
				c.Next()
				return
			}

			for _, prefix := range skipPrefixes {
				if strings.HasPrefix(c.Request.URL.Path, prefix) {
					c.Next()
					return
				}
			}

			ct := c.GetHeader("Content-Type")
			// allow "application/json; charset=utf-8"
			if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"status":  "error",
					"code":    http.StatusUnsupportedMediaType,
					"message": "Content-Type must be application/json",
				})
				return
			}
		}
		c.Next()
	}
}
