package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoodesk/internal/services"
)

// UpdatesHandler serves the polling endpoints. The viewer always comes from
// the token; userId/expertId query parameters are ignored.
type UpdatesHandler struct {
	feed services.FeedService
	now  func() time.Time
}

func NewUpdatesHandler(feed services.FeedService) *UpdatesHandler {
	return &UpdatesHandler{feed: feed, now: func() time.Time { return time.Now().UTC() }}
}

func (h *UpdatesHandler) since(c *gin.Context) (string, time.Time, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return "", time.Time{}, false
	}
	since, err := services.ParseSince(c.Query("since"), h.now())
	if err != nil {
		writeError(c, err)
		return "", time.Time{}, false
	}
	return userID, since, true
}

func (h *UpdatesHandler) Conversations(c *gin.Context) {
	userID, since, ok := h.since(c)
	if !ok {
		return
	}
	rows, err := h.feed.ConversationsSince(c.Request.Context(), userID, since)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *UpdatesHandler) Messages(c *gin.Context) {
	userID, since, ok := h.since(c)
	if !ok {
		return
	}
	rows, err := h.feed.MessagesSince(c.Request.Context(), userID, since)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *UpdatesHandler) ExpertQueue(c *gin.Context) {
	userID, since, ok := h.since(c)
	if !ok {
		return
	}
	q, err := h.feed.ExpertQueueSince(c.Request.Context(), userID, since)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}
