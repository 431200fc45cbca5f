package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	appidentity "github.com/tenantapi/backend/internal/application/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"github.com/tenantapi/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// AuthHandler handles login, refresh and logout
type AuthHandler struct {
	BaseHandler
	authService *appidentity.AuthService
	cookie      CookieSettings
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *appidentity.AuthService, cookie CookieSettings) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
	}
}

// Login authenticates a user inside a tenant.
// The refresh token only travels in an HttpOnly cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), appidentity.LoginInput{
		TenantID: req.TenantID,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.cookie.set(c.Writer, result.RefreshToken)
	h.Success(c, TokenResponse{AccessToken: result.AccessToken})
}

// Refresh rotates the refresh token cookie and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, _ := c.Cookie(h.cookie.Name)

	result, err := h.authService.Refresh(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidRefreshToken) {
			h.cookie.clear(c.Writer)
		}
		h.HandleError(c, err)
		return
	}

	h.cookie.set(c.Writer, result.RefreshToken)
	h.Success(c, TokenResponse{AccessToken: result.AccessToken})
}

// Logout revokes the refresh token, if any, and clears the cookie.
// It always succeeds; a failed revoke is only logged.
func (h *AuthHandler) Logout(c *gin.Context) {
	raw, _ := c.Cookie(h.cookie.Name)

	if err := h.authService.Logout(c.Request.Context(), raw); err != nil {
		logger.L(c.Request.Context()).Warn("Refresh token revoke failed on logout", zap.Error(err))
	}

	h.cookie.clear(c.Writer)
	h.Success(c, dto.OKResponse{OK: true})
}
