package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/internal/utils"
	"github.com/codecraft-ai/codecraft/backend/pkg/response"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextToken  = "token"

	// TokenCookie carries the session token for browser clients of the HTTP API.
	TokenCookie = "token"
)

// TokenVerifier checks a session token, including revocation.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*utils.Claims, error)
}

// AuthRequired accepts a token from the Authorization header or the token cookie.
func AuthRequired(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := requestToken(c)
		if !ok {
			response.Unauthorized(c, "Unauthorized User")
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "Unauthorized User")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextToken, token)

		c.Next()
	}
}

func requestToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// OperatorRequired admits only the configured operator accounts. An empty
// list admits nobody.
func OperatorRequired(operators []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(operators))
	for _, email := range operators {
		if email = models.NormalizeEmail(email); email != "" {
			allowed[email] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[models.NormalizeEmail(GetEmail(c))]; !ok {
			response.Forbidden(c, "operator access required")
			return
		}
		c.Next()
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		if v, ok := id.(uint); ok {
			return v
		}
	}
	return 0
}

func GetEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

// GetToken returns the raw token the request authenticated with.
func GetToken(c *gin.Context) string {
	return c.GetString(ContextToken)
}
