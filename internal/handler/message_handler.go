package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"devmatch/internal/model"
	"devmatch/internal/service/messaging"
)

type MessageHandler struct {
	messages *messaging.Service
	logger   *zap.Logger
}

func NewMessageHandler(messages *messaging.Service, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	var in messaging.SendInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	m, err := h.messages.Send(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": m})
}

func (h *MessageHandler) ReplyToMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var in messaging.ReplyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	m, err := h.messages.Reply(c.Request.Context(), id, callerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": m})
}

func (h *MessageHandler) GetMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	m, err := h.messages.Get(c.Request.Context(), id, callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": m})
}

func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var in messaging.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	m, err := h.messages.Update(c.Request.Context(), id, callerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": m})
}

func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.messages.Delete(c.Request.Context(), id, callerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *MessageHandler) MarkMessageRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.messages.MarkRead(c.Request.Context(), id, callerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// GetConversation returns the thread between the caller and another user,
// optionally scoped to a project via ?project_id=.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	otherID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	var projectID *int
	if raw := c.Query("project_id"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
			return
		}
		projectID = &v
	}

	messages, err := h.messages.Conversation(c.Request.Context(), callerID(c), otherID, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *MessageHandler) GetInbox(c *gin.Context) {
	page, limit := parsePage(c)
	messages, pagination, err := h.messages.Inbox(c.Request.Context(), callerID(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":   messages,
		"pagination": pagination,
	})
}

func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	count, err := h.messages.UnreadCount(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// ListMessages returns everything the caller participates in, filtered by
// message_type, priority, is_read, and archived.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	f := model.MessageFilters{
		MessageType: c.Query("message_type"),
		Priority:    c.Query("priority"),
		IsArchived:  c.Query("archived") == "true",
	}
	if raw := c.Query("is_read"); raw != "" {
		v := raw == "true"
		f.IsRead = &v
	}

	page, limit := parsePage(c)
	messages, pagination, err := h.messages.List(c.Request.Context(), callerID(c), f, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":   messages,
		"pagination": pagination,
	})
}
