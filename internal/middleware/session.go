package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/store"
)

const UsernameKey = "username"

// RequireSession rejects requests made before a user has logged in and puts
// the session username into the gin context.
func RequireSession(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := st.CurrentUser()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}
		c.Set(UsernameKey, user.Username)
		c.Next()
	}
}
