// Package draft keeps in-progress wizard state between requests. Persistence
// is best-effort: failures are logged and never reported to callers.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/workflow"
)

// NewDraftID is the draft identifier used before an assignment has been saved.
const NewDraftID = "new"

// Key scopes a draft to one user and one assignment (or NewDraftID).
type Key struct {
	UserID  uint
	DraftID string
}

func (k Key) String() string {
	id := strings.TrimSpace(k.DraftID)
	if id == "" {
		id = NewDraftID
	}
	return fmt.Sprintf("draft:%d:%s", k.UserID, id)
}

// Draft is the persisted wizard state.
type Draft struct {
	Values  workflow.Values `json:"values"`
	Step    workflow.Step   `json:"step"`
	SavedAt time.Time       `json:"saved_at"`
}

// Store persists drafts. Concurrent writers to the same key are last-write-wins.
type Store interface {
	Save(ctx context.Context, key Key, draft Draft)
	Load(ctx context.Context, key Key) (Draft, bool)
	Clear(ctx context.Context, key Key)
}

// decode validates a stored payload; anything unreadable counts as corrupt.
func decode(payload []byte) (Draft, bool) {
	var d Draft
	if err := json.Unmarshal(payload, &d); err != nil {
		return Draft{}, false
	}
	step, err := workflow.ParseStep(string(d.Step))
	if err != nil {
		return Draft{}, false
	}
	d.Step = step
	d.Values = workflow.Migrate(d.Values)
	return d, true
}

// RedisStore keeps drafts as JSON strings with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewRedisStore constructs a Redis-backed draft store.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "draft_store").Logger(),
		now:    time.Now,
	}
}

func (s *RedisStore) Save(ctx context.Context, key Key, d Draft) {
	if d.SavedAt.IsZero() {
		d.SavedAt = s.now().UTC()
	}
	payload, err := json.Marshal(d)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("failed to encode draft")
		return
	}
	if err := s.client.Set(ctx, key.String(), payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("failed to save draft")
	}
}

func (s *RedisStore) Load(ctx context.Context, key Key) (Draft, bool) {
	payload, err := s.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", key.String()).Msg("failed to read draft")
		}
		return Draft{}, false
	}

	d, ok := decode(payload)
	if !ok {
		s.logger.Info().Str("key", key.String()).Msg("discarding corrupt draft")
		s.Clear(ctx, key)
		return Draft{}, false
	}
	return d, true
}

func (s *RedisStore) Clear(ctx context.Context, key Key) {
	if err := s.client.Del(ctx, key.String()).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("failed to clear draft")
	}
}

// MemoryStore is a process-local store used when Redis is not configured.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string][]byte
	now    func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string][]byte), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, key Key, d Draft) {
	if d.SavedAt.IsZero() {
		d.SavedAt = s.now().UTC()
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[key.String()] = payload
}

func (s *MemoryStore) Load(_ context.Context, key Key) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.drafts[key.String()]
	if !ok {
		return Draft{}, false
	}
	d, ok := decode(payload)
	if !ok {
		delete(s.drafts, key.String())
		return Draft{}, false
	}
	return d, true
}

func (s *MemoryStore) Clear(_ context.Context, key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key.String())
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
