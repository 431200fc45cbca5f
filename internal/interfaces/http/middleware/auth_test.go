package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/auth"
	"github.com/tenantapi/backend/internal/infrastructure/config"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"github.com/tenantapi/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const testSecret = "middleware-test-secret-32-chars!!"

var testIdentity = identity.Identity{TenantID: "tenant-a", UserID: "user-1", RoleID: "role-1"}

func newTestJWT(t *testing.T, secret string) *auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(config.JWTConfig{
		Secret:                secret,
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "tenantapi",
	})
	require.NoError(t, err)
	return svc
}

func newAuthRouter(jwtSvc *auth.JWTService) *gin.Engine {
	router := gin.New()
	router.Use(AuthGuard(jwtSvc, zap.NewNop()))
	router.GET("/me", func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"identity":   id,
			"ctx_tenant": logger.GetTenantID(c.Request.Context()),
			"ctx_user":   logger.GetUserID(c.Request.Context()),
		})
	})
	return router
}

func TestAuthGuard_ValidToken(t *testing.T) {
	jwtSvc := newTestJWT(t, testSecret)
	token, _, err := jwtSvc.IssueAccessToken(testIdentity)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthRouter(jwtSvc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Identity  identity.Identity `json:"identity"`
		CtxTenant string            `json:"ctx_tenant"`
		CtxUser   string            `json:"ctx_user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, testIdentity, body.Identity)
	assert.Equal(t, "tenant-a", body.CtxTenant)
	assert.Equal(t, "user-1", body.CtxUser)
}

func TestAuthGuard_Rejects(t *testing.T) {
	jwtSvc := newTestJWT(t, testSecret)
	forged, _, err := newTestJWT(t, "another-secret-of-sufficient-size").IssueAccessToken(testIdentity)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
		{"foreign signature", "Bearer " + forged},
	}

	router := newAuthRouter(jwtSvc)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, shared.CodeUnauthenticated, resp.Error)
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	_, ok = bearerToken("Bearer")
	assert.False(t, ok)
}
