package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

const (
	PropertyKeyPrefix     = "property:%s"
	PropertyListPrefix    = "properties:list:"
	PropertyStatsPrefix   = "properties:stats:"
	SessionKeyPrefix      = "session:%s"
	BlacklistKeyPrefix    = "blacklist:%s"
	globalStatsScope      = "all"
	invalidateScanBatch   = 200
	invalidateDeleteBatch = 500
)

const (
	PropertyTTL     = 10 * time.Minute
	PropertyListTTL = 10 * time.Minute
	StatsTTL        = time.Minute
	SessionTTL      = 5 * time.Minute
)

// PropertyKey caches a single listing by id or slug.
func PropertyKey(identifier string) string {
	return fmt.Sprintf(PropertyKeyPrefix, identifier)
}

// PropertyListKey hashes a canonical JSON rendering of the query so equal
// queries share one entry regardless of parameter order in the URL.
func PropertyListKey(query any) (string, error) {
	b, err := json.Marshal(query)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return PropertyListPrefix + hex.EncodeToString(sum[:]), nil
}

// StatsKey scopes listing counts to an agent, or to everything when agentID is empty.
func StatsKey(agentID string) string {
	if agentID == "" {
		agentID = globalStatsScope
	}
	return PropertyStatsPrefix + agentID
}

func SessionKey(tokenID string) string {
	return fmt.Sprintf(SessionKeyPrefix, tokenID)
}

func BlacklistKey(tokenID string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, tokenID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidatePrefix deletes every key starting with prefix, scanning in batches.
func InvalidatePrefix(ctx context.Context, prefix string) error {
	if client == nil {
		return nil
	}
	var (
		cursor  uint64
		pending []string
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, prefix+"*", invalidateScanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan %s: %w", prefix, err)
		}
		pending = append(pending, keys...)
		if len(pending) >= invalidateDeleteBatch {
			if err := client.Unlink(ctx, pending...).Err(); err != nil {
				return fmt.Errorf("unlink %s: %w", prefix, err)
			}
			pending = pending[:0]
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(pending) > 0 {
		if err := client.Unlink(ctx, pending...).Err(); err != nil {
			return fmt.Errorf("unlink %s: %w", prefix, err)
		}
	}
	return nil
}

// InvalidateProperty drops a listing's detail entries plus every cached list and stats page.
func InvalidateProperty(ctx context.Context, id, slug string) error {
	Invalidate(ctx, PropertyKey(id))
	if slug != "" {
		Invalidate(ctx, PropertyKey(slug))
	}
	if err := InvalidatePrefix(ctx, PropertyListPrefix); err != nil {
		return err
	}
	return InvalidatePrefix(ctx, PropertyStatsPrefix)
}

// InvalidateSession removes the cached session lookup for a token id.
func InvalidateSession(ctx context.Context, tokenID string) {
	Invalidate(ctx, SessionKey(tokenID))
}

// Blacklist marks a token id as revoked until ttl elapses.
func Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error {
	if client == nil || ttl <= 0 {
		return nil
	}
	return client.Set(ctx, BlacklistKey(tokenID), "1", ttl).Err()
}

// IsBlacklisted reports whether a token id has been revoked.
func IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	if client == nil {
		return false, nil
	}
	n, err := client.Exists(ctx, BlacklistKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
