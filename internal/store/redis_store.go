/**
 * @description
 * This file provides the Redis implementation of the IdempotencyStore
 * interface, for deployments running more than one service instance behind
 * the webhook endpoint. The claim is a Lua-scripted check-and-set so that
 * concurrent deliveries of the same reference, even across processes, yield
 * exactly one Proceed. Record lifetime is enforced with key TTLs: a Pending
 * claim expires after the pending timeout (covering a crash between Begin
 * and Complete), completed and failed records after the retention window.
 *
 * @dependencies
 * - context, encoding/json, fmt, strings, time: Standard Go libraries.
 * - github.com/redis/go-redis/v9: Redis client and script support.
 */

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/isaacadu1245/MY-APP/internal/domain"
)

// beginScript claims the key when absent and otherwise returns the stored
// record so the caller can classify the duplicate. SET and GET must happen
// in one script; a GET-then-SET from Go would race concurrent deliveries.
var beginScript = redis.NewScript(`
local existing = redis.call("GET", KEYS[1])
if existing == false then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
  return ""
end
return existing
`)

type redisRecord struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

// RedisStore is a Redis-backed IdempotencyStore shared across instances.
type RedisStore struct {
	client         redis.UniversalClient
	prefix         string
	retention      time.Duration
	pendingTimeout time.Duration
}

// NewRedisStore creates a RedisStore. Keys are namespaced under prefix so
// the store can share a Redis with other concerns.
func NewRedisStore(client redis.UniversalClient, prefix string, retention, pendingTimeout time.Duration) *RedisStore {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "fulfillment:receipt"
	}
	return &RedisStore{
		client:         client,
		prefix:         trimmed,
		retention:      retention,
		pendingTimeout: pendingTimeout,
	}
}

func (s *RedisStore) key(reference string) string {
	return fmt.Sprintf("%s:%s", s.prefix, reference)
}

// Begin implements IdempotencyStore.
func (s *RedisStore) Begin(ctx context.Context, reference string) (domain.Decision, error) {
	pending, err := json.Marshal(redisRecord{State: domain.RecordPending})
	if err != nil {
		return domain.Decision{}, err
	}

	raw, err := beginScript.Run(ctx, s.client, []string{s.key(reference)}, string(pending), s.pendingTimeout.Milliseconds()).Text()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("redis begin for %s: %w", reference, err)
	}
	if raw == "" {
		return domain.Decision{Outcome: domain.DecisionProceed}, nil
	}

	var record redisRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return domain.Decision{}, fmt.Errorf("redis begin for %s: corrupt record: %w", reference, err)
	}

	switch record.State {
	case domain.RecordCompleted:
		return domain.Decision{Outcome: domain.DecisionAlreadyCompleted, Message: record.Message}, nil
	case domain.RecordFailed:
		return domain.Decision{Outcome: domain.DecisionAlreadyFailed, Message: record.Message}, nil
	default:
		return domain.Decision{Outcome: domain.DecisionAlreadyInFlight}, nil
	}
}

// Complete implements IdempotencyStore.
func (s *RedisStore) Complete(ctx context.Context, reference string, outcome domain.FulfillmentOutcome) error {
	key := s.key(reference)

	if !outcome.Succeeded && outcome.Retryable {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis evict for %s: %w", reference, err)
		}
		return nil
	}

	state := domain.RecordCompleted
	if !outcome.Succeeded {
		state = domain.RecordFailed
	}
	record, err := json.Marshal(redisRecord{State: state, Message: outcome.Message})
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, key, record, s.retention).Err(); err != nil {
		return fmt.Errorf("redis complete for %s: %w", reference, err)
	}
	return nil
}
