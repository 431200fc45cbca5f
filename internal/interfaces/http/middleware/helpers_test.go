package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
)

// withIdentity stands in for AuthGuard
func withIdentity(id identity.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(IdentityKey, id)
		c.Set(TenantIDKey, id.TenantID)
		c.Set(UserIDKey, id.UserID)
		c.Next()
	}
}

// MockPermissionResolver is a mock implementation of PermissionResolver
type MockPermissionResolver struct {
	mock.Mock
}

func (m *MockPermissionResolver) Resolve(ctx context.Context, userID, tenantID string) (identity.PermissionSet, error) {
	args := m.Called(ctx, userID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(identity.PermissionSet), args.Error(1)
}

// memRecords is an in-memory shared.IdempotencyRepository
type memRecords struct {
	mu        sync.Mutex
	records   map[string]*shared.IdempotencyRecord
	findErr   error
	createErr error
	creates   int
}

func newMemRecords() *memRecords {
	return &memRecords{records: make(map[string]*shared.IdempotencyRecord)}
}

func (r *memRecords) Find(_ context.Context, tenantID, key string, now time.Time) (*shared.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	rec, ok := r.records[tenantID+"/"+key]
	if !ok || !rec.ExpiresAt.After(now) {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

func (r *memRecords) Create(_ context.Context, record *shared.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	k := record.TenantID + "/" + record.Key
	if existing, ok := r.records[k]; ok && existing.ExpiresAt.After(record.CreatedAt) {
		return shared.ErrDuplicateKey
	}
	r.records[k] = record
	return nil
}

func (r *memRecords) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, rec := range r.records {
		if rec.ExpiresAt.Before(now) {
			delete(r.records, k)
			n++
		}
	}
	return n, nil
}

func (r *memRecords) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
