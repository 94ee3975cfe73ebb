package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/actions"
	"chat-client/internal/models"
	"chat-client/internal/store"
)

// MessageHandler serves message reads, sends, receipts and reactions.
type MessageHandler struct {
	messages *actions.Messages
	store    *store.Store
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(messages *actions.Messages, st *store.Store) *MessageHandler {
	return &MessageHandler{messages: messages, store: st}
}

// RegisterRoutes mounts the message endpoints.
func (h *MessageHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/chats/:id/messages", h.List)
	r.POST("/chats/:id/messages", h.Send)
	r.DELETE("/chats/:id/messages/:messageID", h.Delete)
	r.POST("/chats/:id/messages/:messageID/seen", h.MarkSeen)
	r.POST("/chats/:id/messages/:messageID/reactions", h.AddReaction)
	r.DELETE("/chats/:id/messages/:messageID/reactions/:emoji", h.RemoveReaction)
	r.GET("/chats/:id/pins", h.Pins)
	r.POST("/chats/:id/messages/:messageID/pin", h.Pin)
	r.DELETE("/chats/:id/messages/:messageID/pin", h.Unpin)
	r.POST("/chats/:id/typing", h.SetTyping)
}

// List returns the cached message sequence for a chat.
func (h *MessageHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Messages(c.Param("id")))
}

type sendRequest struct {
	Content string `json:"content" binding:"required"`
}

// Send stores a new message and returns it.
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.messages.SendMessage(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Delete removes a message.
func (h *MessageHandler) Delete(c *gin.Context) {
	if err := h.messages.DeleteMessage(c.Request.Context(), c.Param("id"), c.Param("messageID")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Pins returns the chat's pinned messages, freshly loaded.
func (h *MessageHandler) Pins(c *gin.Context) {
	msgs, err := h.messages.LoadPinnedMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

// Pin pins a message.
func (h *MessageHandler) Pin(c *gin.Context) {
	if err := h.messages.PinMessage(c.Request.Context(), c.Param("id"), c.Param("messageID")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unpin unpins a message.
func (h *MessageHandler) Unpin(c *gin.Context) {
	if err := h.messages.UnpinMessage(c.Request.Context(), c.Param("id"), c.Param("messageID")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkSeen records a seen receipt. Never fails.
func (h *MessageHandler) MarkSeen(c *gin.Context) {
	h.messages.MarkSeen(c.Request.Context(), c.Param("id"), c.Param("messageID"))
	c.Status(http.StatusNoContent)
}

type reactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// AddReaction records the current user's emoji reaction.
func (h *MessageHandler) AddReaction(c *gin.Context) {
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.messages.AddReaction(c.Request.Context(), c.Param("id"), c.Param("messageID"), req.Emoji); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveReaction removes the current user's emoji reaction.
func (h *MessageHandler) RemoveReaction(c *gin.Context) {
	if err := h.messages.RemoveReaction(c.Request.Context(), c.Param("id"), c.Param("messageID"), c.Param("emoji")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type typingRequest struct {
	IsTyping bool `json:"is_typing"`
}

// SetTyping broadcasts the current user's typing state.
func (h *MessageHandler) SetTyping(c *gin.Context) {
	var req typingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.messages.SetTyping(c.Request.Context(), c.Param("id"), req.IsTyping)
	c.Status(http.StatusNoContent)
}
