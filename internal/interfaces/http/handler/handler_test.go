package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appidentity "github.com/tenantapi/backend/internal/application/identity"
	"github.com/tenantapi/backend/internal/domain/catalog"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/infrastructure/auth"
	"github.com/tenantapi/backend/internal/infrastructure/config"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	t.Run("database reachable", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", NewHealthHandler(stubPinger{}, zap.NewNop()).Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"database":"ok"}`, w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		r := gin.New()
		r.GET("/health", NewHealthHandler(stubPinger{err: errors.New("connection refused")}, zap.New(core)).Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"ok":false,"database":"unavailable"}`, w.Body.String())
		assert.Equal(t, 1, logs.FilterMessage("Health check failed").Len())
	})
}

// failingRefreshTokens fails every write
type failingRefreshTokens struct {
	identity.RefreshTokenRepository
}

func (failingRefreshTokens) RevokeByHash(context.Context, string, time.Time) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestAuthHandler_LogoutSucceedsWhenRevokeFails(t *testing.T) {
	jwtService, err := auth.NewJWTService(config.JWTConfig{Secret: "handler-test-secret"})
	require.NoError(t, err)
	tokens := appidentity.NewTokenService(jwtService, failingRefreshTokens{}, appidentity.DefaultTokenServiceConfig(), nil, zap.NewNop())
	authService := appidentity.NewAuthService(nil, auth.NewPasswordHasher(0), tokens, zap.NewNop())

	cookie := CookieSettings{Name: "refresh_token", Path: "/api/v1/auth", SameSite: http.SameSiteLaxMode, MaxAge: time.Hour}
	h := NewAuthHandler(authService, cookie)

	core, logs := observer.New(zap.WarnLevel)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), zap.New(core)))
		c.Next()
	})
	r.POST("/api/v1/auth/logout", h.Logout)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "raw-refresh-token"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "refresh_token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
	assert.Equal(t, 1, logs.FilterMessage("Refresh token revoke failed on logout").Len())
}

func TestNewCookieSettings(t *testing.T) {
	cfg := &config.Config{
		App:     config.AppConfig{Env: "development"},
		Refresh: config.RefreshConfig{CookieName: "refresh_token", Expiration: time.Hour},
		Cookie:  config.CookieConfig{Path: "/api/v1/auth", Domain: "example.test", SameSite: "Strict"},
	}

	s := NewCookieSettings(cfg)
	assert.Equal(t, "refresh_token", s.Name)
	assert.Equal(t, "example.test", s.Domain)
	assert.False(t, s.Secure)
	assert.Equal(t, http.SameSiteStrictMode, s.SameSite)
	assert.Equal(t, time.Hour, s.MaxAge)

	cfg.App.Env = "production"
	assert.True(t, NewCookieSettings(cfg).Secure)
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteNoneMode, parseSameSite("none"))
	assert.Equal(t, http.SameSiteStrictMode, parseSameSite("strict"))
	assert.Equal(t, http.SameSiteLaxMode, parseSameSite("lax"))
	assert.Equal(t, http.SameSiteLaxMode, parseSameSite(""))
	assert.Equal(t, http.SameSiteLaxMode, parseSameSite("bogus"))
}

func TestCookieSettings_SetAndClear(t *testing.T) {
	s := CookieSettings{Name: "rt", Path: "/auth", Secure: true, SameSite: http.SameSiteLaxMode, MaxAge: 2 * time.Hour}

	w := httptest.NewRecorder()
	s.set(w, "opaque")
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "opaque", cookies[0].Value)
	assert.Equal(t, 7200, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, "/auth", cookies[0].Path)

	w = httptest.NewRecorder()
	s.clear(w)
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
	assert.Equal(t, "/auth", cookies[0].Path)
}

func TestToProductResponse(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	price := decimal.RequireFromString("9.90")
	unit := "kg"

	resp := ToProductResponse(&catalog.Product{
		ID: "p1", TenantID: "t1", SKU: "S-1", Name: "Flour", Unit: &unit, Price: &price,
		CreatedAt: now, UpdatedAt: now,
	})
	assert.Equal(t, "p1", resp.ID)
	require.NotNil(t, resp.Price)
	assert.Equal(t, "9.9", *resp.Price)
	assert.Equal(t, &unit, resp.Unit)

	resp = ToProductResponse(&catalog.Product{ID: "p2"})
	assert.Nil(t, resp.Price)
	assert.Nil(t, resp.Unit)

	assert.Empty(t, ToProductResponses(nil))
	assert.NotNil(t, ToProductResponses(nil))
}
