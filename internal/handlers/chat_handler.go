package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-client/internal/actions"
	"chat-client/internal/models"
	"chat-client/internal/store"
)

// ChatSession switches which chat's realtime subscriptions are live.
type ChatSession interface {
	EnterChat(ctx context.Context, chatID string) error
	LeaveChat()
}

// ChatHandler serves the chat list and chat lifecycle endpoints.
type ChatHandler struct {
	chats   *actions.Chats
	manager ChatSession
	store   *store.Store
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(chats *actions.Chats, manager ChatSession, st *store.Store) *ChatHandler {
	return &ChatHandler{chats: chats, manager: manager, store: st}
}

// RegisterRoutes mounts the chat endpoints.
func (h *ChatHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/chats", h.List)
	r.POST("/chats", h.Create)
	r.POST("/chats/refresh", h.Refresh)
	r.POST("/chats/join", h.JoinByCode)
	r.POST("/chats/:id/join", h.Join)
	r.POST("/chats/:id/enter", h.Enter)
	r.POST("/chats/leave", h.Leave)
	r.GET("/chats/:id/code", h.FriendCode)
	r.POST("/chats/:id/code/temporary", h.TemporaryCode)
	r.PUT("/chats/:id/name", h.Rename)
	r.POST("/chats/:id/block", h.Block)
	r.POST("/chats/:id/unblock", h.Unblock)
	r.GET("/chats/:id/typing", h.Typing)
}

type chatView struct {
	models.Chat
	Preview string `json:"preview"`
	Unread  int    `json:"unread"`
}

// List returns the cached chat list with one-line previews and unread
// counters, ready to render.
func (h *ChatHandler) List(c *gin.Context) {
	chats := h.store.Chats()
	views := make([]chatView, 0, len(chats))
	for _, chat := range chats {
		views = append(views, chatView{
			Chat:    chat,
			Preview: models.FormatPreview(chat.LastMessage),
			Unread:  h.store.UnreadCount(chat.ID),
		})
	}
	c.JSON(http.StatusOK, views)
}

// Create makes a new chat with the current user as sole participant.
func (h *ChatHandler) Create(c *gin.Context) {
	chatID, err := h.chats.CreateChat(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"chat_id": chatID})
}

// Refresh forces a reload of the chat list from the remote service.
func (h *ChatHandler) Refresh(c *gin.Context) {
	if err := h.chats.LoadChats(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	h.List(c)
}

type joinRequest struct {
	Username string `json:"username" binding:"required"`
}

// Join adds a user to a chat by id.
func (h *ChatHandler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.chats.JoinChat(c.Request.Context(), c.Param("id"), req.Username); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type joinByCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// JoinByCode joins the current user to the chat a friend code maps to.
func (h *ChatHandler) JoinByCode(c *gin.Context) {
	var req joinByCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.store.CurrentUser()
	if !ok {
		writeError(c, actions.ErrNotLoggedIn)
		return
	}
	chatID, err := h.chats.JoinChatByCode(c.Request.Context(), req.Code, user.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": chatID})
}

// Enter opens a chat: history is loaded and the chat's realtime
// subscriptions replace the previous chat's.
func (h *ChatHandler) Enter(c *gin.Context) {
	chatID := c.Param("id")
	if err := h.manager.EnterChat(c.Request.Context(), chatID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.store.Messages(chatID))
}

// Leave closes the active chat.
func (h *ChatHandler) Leave(c *gin.Context) {
	h.manager.LeaveChat()
	c.Status(http.StatusNoContent)
}

// FriendCode returns the chat's permanent friend code, minting one if
// needed.
func (h *ChatHandler) FriendCode(c *gin.Context) {
	code, err := h.chats.GenerateFriendCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

type temporaryCodeRequest struct {
	TTLSeconds int `json:"ttl_seconds" binding:"required,min=1"`
}

// TemporaryCode mints a time-limited friend code.
func (h *ChatHandler) TemporaryCode(c *gin.Context) {
	var req temporaryCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code, err := h.chats.CreateTemporaryCode(c.Request.Context(), c.Param("id"),
		time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": code})
}

type renameRequest struct {
	Name string `json:"name" binding:"required"`
}

// Rename updates the chat name. Creator only.
func (h *ChatHandler) Rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.chats.UpdateChatName(c.Request.Context(), c.Param("id"), req.Name); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type blockRequest struct {
	Username string `json:"username" binding:"required"`
}

// Block hides the chat and its other participant from the current user.
func (h *ChatHandler) Block(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.chats.Block(c.Request.Context(), c.Param("id"), req.Username); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unblock lifts a block so the chat reappears.
func (h *ChatHandler) Unblock(c *gin.Context) {
	if err := h.chats.Unblock(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Typing returns the users currently typing in a chat.
func (h *ChatHandler) Typing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"typing": h.store.TypingUsers(c.Param("id"))})
}
