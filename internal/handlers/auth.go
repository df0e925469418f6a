package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/middleware"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/response"
)

type AuthHandler struct {
	authService  *services.AuthService
	secureCookie bool
}

func NewAuthHandler(authService *services.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string, expireAt time.Time) {
	maxAge := int(time.Until(expireAt).Seconds())
	if token == "" {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", h.secureCookie, true)
}

// Register creates an account and signs it in
// POST /api/users/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.setTokenCookie(c, result.Token, result.ExpireAt)
	response.Created(c, result)
}

// Login handles user login
// POST /api/users/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.setTokenCookie(c, result.Token, result.ExpireAt)
	response.Success(c, result)
}

// Logout revokes the caller's token
// POST /api/users/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.GetToken(c)); err != nil {
		fail(c, err)
		return
	}

	h.setTokenCookie(c, "", time.Time{})
	response.Success(c, gin.H{"message": "Logged out successfully"})
}

// GetCurrentUser returns the current logged-in user
// GET /api/users/profile
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, user)
}

// ListUsers returns every other account, for inviting members
// GET /api/users/all
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListOtherUsers(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"users": users})
}
