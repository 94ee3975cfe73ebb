package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/actions"
	"chat-client/internal/repositories"
)

// writeError maps action and repository errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, actions.ErrNotLoggedIn),
		errors.Is(err, actions.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, actions.ErrNotCreator):
		status = http.StatusForbidden
	case errors.Is(err, actions.ErrInvalidCode),
		errors.Is(err, repositories.ErrChatNotFound),
		errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, repositories.ErrCodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, actions.ErrChatFull),
		errors.Is(err, repositories.ErrUsernameTaken):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
