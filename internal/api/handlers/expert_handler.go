package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoodesk/internal/services"
)

type ExpertHandler struct {
	assignments services.AssignmentService
	profiles    services.ProfileService
}

func NewExpertHandler(assignments services.AssignmentService, profiles services.ProfileService) *ExpertHandler {
	return &ExpertHandler{assignments: assignments, profiles: profiles}
}

func (h *ExpertHandler) Queue(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	q, err := h.assignments.Queue(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *ExpertHandler) Claim(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.assignments.Claim(c.Request.Context(), c.Param("id"), userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ExpertHandler) Unclaim(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.assignments.Unclaim(c.Request.Context(), c.Param("id"), userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ExpertHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	rows, err := h.assignments.History(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ExpertHandler) Profile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	p, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type UpdateProfileRequest struct {
	Bio                string   `json:"bio"`
	KnowledgeBaseLinks []string `json:"knowledgeBaseLinks"`
}

func (h *ExpertHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !bindJSON(c, &req, "ExpertHandler.UpdateProfile") {
		return
	}
	p, err := h.profiles.Update(c.Request.Context(), userID, req.Bio, req.KnowledgeBaseLinks)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
