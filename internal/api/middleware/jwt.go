package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoodesk/internal/utils"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// Authenticator resolves a bearer token to a user id. services.AuthService
// satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

func JWTAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "missing bearer token",
			})
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "missing bearer token",
			})
			return
		}

		userID, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			status := utils.HTTPStatus(err)
			msg := "invalid token"
			if status != http.StatusUnauthorized {
				msg = http.StatusText(status)
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(status, apiError{
				Code:    utils.CodeOf(err),
				Message: msg,
			})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
