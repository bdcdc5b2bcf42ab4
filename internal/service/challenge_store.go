package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeKeyPrefix = "challenge:"

// redisChallengeStore keeps ceremony state in Redis with a TTL, so
// expiry needs no sweeper and state is shared across instances.
type redisChallengeStore struct {
	client *redis.Client
}

// NewRedisChallengeStore creates a Redis-backed challenge store.
func NewRedisChallengeStore(client *redis.Client) ChallengeStore {
	return &redisChallengeStore{client: client}
}

func (s *redisChallengeStore) Store(ctx context.Context, key string, state []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, challengeKeyPrefix+key, state, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (s *redisChallengeStore) Get(ctx context.Context, key string) ([]byte, error) {
	state, err := s.client.Get(ctx, challengeKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return state, nil
}

func (s *redisChallengeStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, challengeKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

type memoryChallengeEntry struct {
	state     []byte
	expiresAt time.Time
}

// memoryChallengeStore is a process-local store for tests and
// single-node development runs.
type memoryChallengeStore struct {
	mu      sync.Mutex
	entries map[string]memoryChallengeEntry
}

// NewMemoryChallengeStore creates an in-memory challenge store.
func NewMemoryChallengeStore() ChallengeStore {
	return &memoryChallengeStore{entries: make(map[string]memoryChallengeEntry)}
}

func (s *memoryChallengeStore) Store(_ context.Context, key string, state []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryChallengeEntry{state: state, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *memoryChallengeStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	return entry.state, nil
}

func (s *memoryChallengeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
