package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CancelRegistry is the cooperative cancellation channel between the API
// (which requests a cancel) and the worker (which polls between notes).
type CancelRegistry interface {
	RequestCancel(ctx context.Context, jobId uuid.UUID) error
	IsCancelRequested(ctx context.Context, jobId uuid.UUID) (bool, error)
	Clear(ctx context.Context, jobId uuid.UUID) error
}

// RedisCancelRegistry stores cancel flags in Redis so cancellation works
// when the API and the worker run in separate processes. Flags expire on
// their own in case a worker dies before clearing them.
type RedisCancelRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

var _ CancelRegistry = (*RedisCancelRegistry)(nil)

func NewRedisCancelRegistry(client *redis.Client) *RedisCancelRegistry {
	return &RedisCancelRegistry{client: client, ttl: 24 * time.Hour}
}

func cancelKey(jobId uuid.UUID) string {
	return "indexing:cancel:" + jobId.String()
}

func (r *RedisCancelRegistry) RequestCancel(ctx context.Context, jobId uuid.UUID) error {
	return r.client.Set(ctx, cancelKey(jobId), "1", r.ttl).Err()
}

func (r *RedisCancelRegistry) IsCancelRequested(ctx context.Context, jobId uuid.UUID) (bool, error) {
	n, err := r.client.Exists(ctx, cancelKey(jobId)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisCancelRegistry) Clear(ctx context.Context, jobId uuid.UUID) error {
	return r.client.Del(ctx, cancelKey(jobId)).Err()
}

// MemoryCancelRegistry backs tests and single-process deployments.
type MemoryCancelRegistry struct {
	mu    sync.RWMutex
	flags map[uuid.UUID]struct{}
}

var _ CancelRegistry = (*MemoryCancelRegistry)(nil)

func NewMemoryCancelRegistry() *MemoryCancelRegistry {
	return &MemoryCancelRegistry{flags: make(map[uuid.UUID]struct{})}
}

func (m *MemoryCancelRegistry) RequestCancel(_ context.Context, jobId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[jobId] = struct{}{}
	return nil
}

func (m *MemoryCancelRegistry) IsCancelRequested(_ context.Context, jobId uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.flags[jobId]
	return ok, nil
}

func (m *MemoryCancelRegistry) Clear(_ context.Context, jobId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flags, jobId)
	return nil
}
