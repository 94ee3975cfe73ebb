package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/actions"
	"chat-client/internal/models"
	"chat-client/internal/store"
)

// UserHandler serves profiles and presence.
type UserHandler struct {
	users *actions.Users
	store *store.Store
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *actions.Users, st *store.Store) *UserHandler {
	return &UserHandler{users: users, store: st}
}

// RegisterRoutes mounts the user endpoints.
func (h *UserHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/users/:username/profile", h.Profile)
	r.PUT("/profile", h.UpdateProfile)
	r.GET("/statuses", h.Statuses)
}

// Profile returns a user's profile, served from the cache when possible.
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type profileUpdateRequest struct {
	Field string `json:"field" binding:"required,oneof=avatar bio"`
	Value string `json:"value"`
}

// UpdateProfile writes one field of the current user's profile and
// broadcasts the change.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.users.UpdateProfileField(c.Request.Context(), req.Field, req.Value); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Statuses returns the cached presence table.
func (h *UserHandler) Statuses(c *gin.Context) {
	statuses := h.store.Statuses()
	if statuses == nil {
		statuses = []models.UserStatus{}
	}
	c.JSON(http.StatusOK, statuses)
}
