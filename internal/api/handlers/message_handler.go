package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoodesk/internal/services"
)

type MessageHandler struct {
	svc services.MessageService
}

func NewMessageHandler(svc services.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// CreateMessageRequest accepts both id spellings, flat or nested under
// "message".
type CreateMessageRequest struct {
	ConversationID      string `json:"conversationId"`
	ConversationIDSnake string `json:"conversation_id"`
	Content             string `json:"content"`
	Message             *struct {
		ConversationID      string `json:"conversationId"`
		ConversationIDSnake string `json:"conversation_id"`
		Content             string `json:"content"`
	} `json:"message,omitempty"`
}

func (r *CreateMessageRequest) normalize() (conversationID, content string) {
	conversationID = firstNonEmpty(r.ConversationID, r.ConversationIDSnake)
	content = r.Content
	if r.Message != nil {
		conversationID = firstNonEmpty(conversationID, r.Message.ConversationID, r.Message.ConversationIDSnake)
		content = firstNonEmpty(content, r.Message.Content)
	}
	return conversationID, content
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	rows, err := h.svc.List(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *MessageHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req CreateMessageRequest
	if !bindJSON(c, &req, "MessageHandler.Create") {
		return
	}
	conversationID, content := req.normalize()

	m, err := h.svc.Send(c.Request.Context(), userID, conversationID, content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
