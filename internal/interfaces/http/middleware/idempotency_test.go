package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type idempotencyFixture struct {
	router  *gin.Engine
	records *memRecords
	calls   *atomic.Int32
	status  int
}

func newIdempotencyFixture(t *testing.T, opts IdempotencyOptions, authenticated bool) *idempotencyFixture {
	t.Helper()
	f := &idempotencyFixture{
		records: newMemRecords(),
		calls:   new(atomic.Int32),
		status:  http.StatusCreated,
	}
	if opts.Records == nil {
		opts.Records = f.records
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	f.router = gin.New()
	if authenticated {
		f.router.Use(withIdentity(testIdentity))
	}
	f.router.Use(Idempotency(opts))

	handler := func(c *gin.Context) {
		n := f.calls.Add(1)
		body, _ := io.ReadAll(c.Request.Body)
		if f.status >= http.StatusBadRequest {
			c.JSON(f.status, gin.H{"error": "invalid_request"})
			return
		}
		c.JSON(f.status, gin.H{"call": n, "echo": string(body)})
	}
	f.router.POST("/products", handler)
	f.router.PATCH("/products/:id", handler)
	f.router.GET("/products", handler)
	return f
}

func (f *idempotencyFixture) do(method, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysIdenticalRequest(t *testing.T) {
	f := newIdempotencyFixture(t, IdempotencyOptions{}, true)

	first := f.do(http.MethodPost, "/products", "key-00000001", `{"sku":"A","name":"Apple"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(HeaderIdempotentReplayed))

	// same JSON, different key order and whitespace
	second := f.do(http.MethodPost, "/products", "key-00000001", `{ "name": "Apple", "sku": "A" }`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderIdempotentReplayed))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestIdempotency_RejectsDifferentBody(t *testing.T) {
	f := newIdempotencyFixture(t, IdempotencyOptions{}, true)

	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/products", "key-00000002", `{"sku":"A"}`).Code)
	w := f.do(http.MethodPost, "/products", "key-00000002", `{"sku":"B"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), shared.CodeIdempotencyKeyReused)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestIdempotency_RouteTemplateIsPartOfFingerprint(t *testing.T) {
	f := newIdempotencyFixture(t, IdempotencyOptions{}, true)
	f.status = http.StatusOK

	require.Equal(t, http.StatusOK, f.do(http.MethodPatch, "/products/p1", "key-00000003", `{"name":"x"}`).Code)

	// another id resolves to the same template, so this is a replay
	w := f.do(http.MethodPatch, "/products/p2", "key-00000003", `{"name":"x"}`)
	assert.Equal(t, "true", w.Header().Get(HeaderIdempotentReplayed))

	// a different method is a different request
	w = f.do(http.MethodPost, "/products", "key-00000003", `{"name":"x"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIdempotency_ErrorsAreNotStored(t *testing.T) {
	f := newIdempotencyFixture(t, IdempotencyOptions{}, true)
	f.status = http.StatusUnprocessableEntity

	require.Equal(t, http.StatusUnprocessableEntity, f.do(http.MethodPost, "/products", "key-00000004", `{}`).Code)
	assert.Equal(t, 0, f.records.count())

	f.status = http.StatusCreated
	w := f.do(http.MethodPost, "/products", "key-00000004", `{}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get(HeaderIdempotentReplayed))
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestIdempotency_KeyRequired(t *testing.T) {
	f := newIdempotencyFixture(t, IdempotencyOptions{}, true)

	for _, key := range []string{"", "short", "   short   "} {
		w := f.do(http.MethodPost, "/products", key, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, key)
		assert.Contains(t, w.Body.String(), shared.CodeIdempotencyKeyRequired)
	}
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestIdempotency_TenantRequired(t *testing.T) {
	f := newIdempotencyFixture(t, IdempotencyOptions{}, false)

	w := f.do(http.MethodPost, "/products", "key-00000005", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), shared.CodeTenantRequired)
}

func TestIdempotency_ReadsBypass(t *testing.T) {
	f := newIdempotencyFixture(t, IdempotencyOptions{}, false)
	f.status = http.StatusOK

	w := f.do(http.MethodGet, "/products", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, f.records.count())
}

func TestIdempotency_ExpiredRecordIsIgnored(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newIdempotencyFixture(t, IdempotencyOptions{
		Config: shared.IdempotencyConfig{TTL: time.Hour},
		Now:    func() time.Time { return now },
	}, true)

	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/products", "key-00000006", `{"a":1}`).Code)
	now = now.Add(2 * time.Hour)

	w := f.do(http.MethodPost, "/products", "key-00000006", `{"a":2}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestIdempotency_StoreFailuresAreSwallowed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	records := newMemRecords()
	records.createErr = errors.New("disk full")
	f := newIdempotencyFixture(t, IdempotencyOptions{Records: records, Logger: zap.New(core)}, true)

	w := f.do(http.MethodPost, "/products", "key-00000007", `{}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, logs.FilterMessage("Failed to store idempotency record").Len())
}

func TestIdempotency_ConcurrentInsertIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	records := newMemRecords()
	records.createErr = shared.ErrDuplicateKey
	f := newIdempotencyFixture(t, IdempotencyOptions{Records: records, Logger: zap.New(core)}, true)

	w := f.do(http.MethodPost, "/products", "key-00000008", `{}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, logs.FilterMessage("Idempotency record already stored by a concurrent request").Len())
}

func TestIdempotency_LookupFailureIs500(t *testing.T) {
	records := newMemRecords()
	records.findErr = errors.New("connection refused")
	f := newIdempotencyFixture(t, IdempotencyOptions{Records: records}, true)

	w := f.do(http.MethodPost, "/products", "key-00000009", `{}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), shared.CodeInternal)
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestIdempotency_InFlightClaim(t *testing.T) {
	claims := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = claims.Close() })

	f := newIdempotencyFixture(t, IdempotencyOptions{
		Claims: claims,
		Config: shared.IdempotencyConfig{ClaimInFlight: true, ClaimTTL: time.Minute},
	}, true)

	// another request holds the key
	held, err := claims.MarkProcessed(context.Background(), "idem:tenant-a:key-00000010", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	w := f.do(http.MethodPost, "/products", "key-00000010", `{}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), shared.CodeIdempotencyInProgress)

	require.NoError(t, claims.Release(context.Background(), "idem:tenant-a:key-00000010"))
	w = f.do(http.MethodPost, "/products", "key-00000010", `{}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	// released after the post phase
	processing, err := claims.IsProcessed(context.Background(), "idem:tenant-a:key-00000010")
	require.NoError(t, err)
	assert.False(t, processing)
}

// cancelAwareClaims refuses to release on a cancelled context, like a network client would
type cancelAwareClaims struct {
	*cache.InMemoryIdempotencyStore
}

func (s cancelAwareClaims) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.InMemoryIdempotencyStore.Release(ctx, key)
}

func TestIdempotency_ClaimReleasedAfterClientDisconnect(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	core, logs := observer.New(zap.WarnLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := gin.New()
	router.Use(withIdentity(testIdentity))
	router.Use(Idempotency(IdempotencyOptions{
		Records: newMemRecords(),
		Claims:  cancelAwareClaims{store},
		Config:  shared.IdempotencyConfig{ClaimInFlight: true, ClaimTTL: time.Minute},
		Logger:  zap.New(core),
	}))
	router.POST("/products", func(c *gin.Context) {
		cancel()
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{}`)).WithContext(ctx)
	req.Header.Set(HeaderIdempotencyKey, "key-00000011")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	processing, err := store.IsProcessed(context.Background(), "idem:tenant-a:key-00000011")
	require.NoError(t, err)
	assert.False(t, processing)
	assert.Zero(t, logs.FilterMessage("Idempotency claim release failed").Len())
}

func TestCanonicalBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "null"},
		{"whitespace", "  \n", "null"},
		{"sorted keys", `{"b":1, "a":{"d":2,"c":3}}`, `{"a":{"c":3,"d":2},"b":1}`},
		{"large numbers kept", `{"price":12.50}`, `{"price":12.50}`},
		{"not json", "plain text", "plain text"},
		{"trailing data", `{"a":1} {"b":2}`, `{"a":1} {"b":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(CanonicalBody([]byte(tt.in))))
		})
	}
}

func TestRequestHash(t *testing.T) {
	a := RequestHash(http.MethodPost, "/api/v1/products", []byte(`{"sku":"A","name":"n"}`))
	b := RequestHash(http.MethodPost, "/api/v1/products", []byte(`{"name":"n","sku":"A"}`))
	c := RequestHash(http.MethodPatch, "/api/v1/products", []byte(`{"name":"n","sku":"A"}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
