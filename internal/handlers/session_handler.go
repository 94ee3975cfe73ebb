// Package handlers exposes the client's state and actions over a local HTTP
// API that the UI process talks to. Handlers translate between HTTP and the
// actions layer; they hold no business logic of their own.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/actions"
	"chat-client/internal/store"
)

// SessionHandler serves login, registration and logout.
type SessionHandler struct {
	users  *actions.Users
	store  *store.Store
	begin  func()
	logout func(*gin.Context)
}

// NewSessionHandler constructs a SessionHandler. begin is invoked after a
// successful login or registration to start realtime routing and the
// pollers; logout runs the full teardown sequence.
func NewSessionHandler(users *actions.Users, st *store.Store, begin func(), logout func(*gin.Context)) *SessionHandler {
	return &SessionHandler{users: users, store: st, begin: begin, logout: logout}
}

// RegisterRoutes mounts the session endpoints.
func (h *SessionHandler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/session/login", h.Login)
	r.POST("/session/register", h.Register)
	r.POST("/session/logout", h.Logout)
	r.GET("/session", h.Current)
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Avatar   string `json:"avatar"`
}

// Login authenticates against the remote service and starts the session.
func (h *SessionHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.begin()
	c.JSON(http.StatusOK, user)
}

// Register creates an account and starts the session.
func (h *SessionHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.Avatar)
	if err != nil {
		writeError(c, err)
		return
	}
	h.begin()
	c.JSON(http.StatusCreated, user)
}

// Logout tears the session down. Always succeeds locally.
func (h *SessionHandler) Logout(c *gin.Context) {
	h.logout(c)
	c.Status(http.StatusNoContent)
}

// Current returns the logged-in user.
func (h *SessionHandler) Current(c *gin.Context) {
	user, ok := h.store.CurrentUser()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}
	c.JSON(http.StatusOK, user)
}
