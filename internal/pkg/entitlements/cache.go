package entitlements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	decisionKeyPrefix   = "entitlements:decision:"
	generationKeyPrefix = "entitlements:gen:"

	// Entries far beyond the staleness window are useless; let Redis
	// evict them.
	cacheEntryTTL = 7 * 24 * time.Hour
)

// CacheEntry is the locally cached hint derived from the last successful
// reconciliation. It is never trusted over a fresh authoritative answer;
// a stale entry is overwritten, never merged.
type CacheEntry struct {
	UserID           uint      `json:"user_id"`
	QuestionSetID    uint      `json:"question_set_id"`
	HasAccess        bool      `json:"has_access"`
	RemainingDays    *int      `json:"remaining_days,omitempty"`
	Reason           Reason    `json:"reason"`
	ObservedAt       time.Time `json:"observed_at"`
	SourceGeneration uint64    `json:"source_generation"`
}

// DecisionCache stores last-known grant decisions keyed by
// (user, question set).
type DecisionCache interface {
	// Get returns (nil, nil) on a cache miss.
	Get(ctx context.Context, userID, questionSetID uint) (*CacheEntry, error)
	// Put unconditionally overwrites the entry for the pair.
	Put(ctx context.Context, entry *CacheEntry) error
	// NextGeneration returns a fresh monotonic counter value for the user.
	NextGeneration(ctx context.Context, userID uint) (uint64, error)
}

type redisDecisionCache struct {
	client *redis.Client
}

// NewRedisDecisionCache creates a decision cache on the shared Redis client.
func NewRedisDecisionCache(client *redis.Client) DecisionCache {
	return &redisDecisionCache{client: client}
}

func decisionKey(userID, questionSetID uint) string {
	return fmt.Sprintf("%s%d:%d", decisionKeyPrefix, userID, questionSetID)
}

func generationKey(userID uint) string {
	return fmt.Sprintf("%s%d", generationKeyPrefix, userID)
}

func (c *redisDecisionCache) Get(ctx context.Context, userID, questionSetID uint) (*CacheEntry, error) {
	raw, err := c.client.Get(ctx, decisionKey(userID, questionSetID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *redisDecisionCache) Put(ctx context.Context, entry *CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, decisionKey(entry.UserID, entry.QuestionSetID), raw, cacheEntryTTL).Err()
}

func (c *redisDecisionCache) NextGeneration(ctx context.Context, userID uint) (uint64, error) {
	n, err := c.client.Incr(ctx, generationKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}
