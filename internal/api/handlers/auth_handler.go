package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoodesk/internal/models"
	"github.com/yoockh/yoodesk/internal/services"
)

type AuthHandler struct {
	svc services.AuthService
}

func NewAuthHandler(svc services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt *time.Time `json:"last_active_at"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt, LastActiveAt: u.LastActiveAt}
}

func toAuthResponse(r *services.AuthResult) authResponse {
	return authResponse{User: toUserResponse(r.User), Token: r.Token}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if !bindJSON(c, &req, "AuthHandler.Register") {
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAuthResponse(res))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if !bindJSON(c, &req, "AuthHandler.Login") {
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAuthResponse(res))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.svc.Logout(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	res, err := h.svc.Refresh(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAuthResponse(res))
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	u, err := h.svc.Me(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}
