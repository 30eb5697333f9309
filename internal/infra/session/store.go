// Package session keeps workflow runs between HTTP requests. Runs are
// session state, not records: they live in Redis with a TTL and disappear
// once finalized or abandoned.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fintutto/vermietify-docs/internal/workflow"
	"github.com/redis/go-redis/v9"
)

// ErrRunNotFound indicates an unknown or expired run ID.
var ErrRunNotFound = errors.New("session: workflow run not found")

// RunStore persists workflow runs across requests.
type RunStore interface {
	Save(ctx context.Context, run *workflow.Run) error
	Get(ctx context.Context, runID string) (*workflow.Run, error)
	Delete(ctx context.Context, runID string) error
}

// RedisRunStore keeps runs in Redis under a key prefix with a TTL.
type RedisRunStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRunStore creates a store over client. A non-positive ttl falls
// back to 24h.
func NewRedisRunStore(client *redis.Client, ttl time.Duration) *RedisRunStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisRunStore{client: client, ttl: ttl}
}

func runKey(runID string) string {
	return fmt.Sprintf("vermietify:workflow:run:%s", runID)
}

// Save serializes run as JSON and refreshes its TTL.
func (s *RedisRunStore) Save(ctx context.Context, run *workflow.Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, runKey(run.ID), payload, s.ttl).Err()
}

// Get loads a run by ID.
func (s *RedisRunStore) Get(ctx context.Context, runID string) (*workflow.Run, error) {
	payload, err := s.client.Get(ctx, runKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	var run workflow.Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Delete removes a run.
func (s *RedisRunStore) Delete(ctx context.Context, runID string) error {
	return s.client.Del(ctx, runKey(runID)).Err()
}

// MemoryRunStore is an in-process store used in tests and single-node
// deployments without Redis.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

// NewMemoryRunStore creates an empty in-memory store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: map[string][]byte{}}
}

// Save stores a JSON copy of run so later mutations do not leak in.
func (s *MemoryRunStore) Save(ctx context.Context, run *workflow.Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = payload
	return nil
}

// Get loads a run by ID.
func (s *MemoryRunStore) Get(ctx context.Context, runID string) (*workflow.Run, error) {
	s.mu.RLock()
	payload, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrRunNotFound
	}
	var run workflow.Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Delete removes a run.
func (s *MemoryRunStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}
