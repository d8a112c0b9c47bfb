package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "insurance-advisor:session:"
	DefaultTTL = 24 * time.Hour
)

// redisState mirrors State but keeps the document, which State hides from JSON responses.
type redisState struct {
	State
	Document string `json:"document,omitempty"`
}

// RedisStore keeps sessions as JSON values with a sliding TTL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	return NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: addr}), ttl)
}

func NewRedisStoreWithClient(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Ping checks connectivity, used at startup.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Create(ctx context.Context) (*State, error) {
	state := newState()
	if err := r.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*State, error) {
	return r.load(ctx, id)
}

func (r *RedisStore) Append(ctx context.Context, id string, exchange Exchange) (*State, error) {
	return r.update(ctx, id, func(s *State) {
		if exchange.AskedAt.IsZero() {
			exchange.AskedAt = now().UTC()
		}
		s.History = append(s.History, exchange)
	})
}

func (r *RedisStore) SetDocument(ctx context.Context, id, name, text string) (*State, error) {
	return r.update(ctx, id, func(s *State) {
		s.DocumentName = name
		s.Document = text
	})
}

func (r *RedisStore) Clear(ctx context.Context, id string) (*State, error) {
	return r.update(ctx, id, func(s *State) {
		s.History = []Exchange{}
	})
}

// update is a read-modify-write without WATCH: concurrent writers to the same
// session may lose an exchange.
func (r *RedisStore) update(ctx context.Context, id string, fn func(*State)) (*State, error) {
	state, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(state)
	if err := r.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *RedisStore) load(ctx context.Context, id string) (*State, error) {
	raw, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var stored redisState
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}

	state := stored.State
	state.Document = stored.Document
	if state.History == nil {
		state.History = []Exchange{}
	}
	return &state, nil
}

func (r *RedisStore) save(ctx context.Context, state *State) error {
	payload, err := json.Marshal(redisState{State: *state, Document: state.Document})
	if err != nil {
		return fmt.Errorf("encode session %s: %w", state.ID, err)
	}

	if err := r.client.Set(ctx, keyPrefix+state.ID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("store session %s: %w", state.ID, err)
	}
	return nil
}
