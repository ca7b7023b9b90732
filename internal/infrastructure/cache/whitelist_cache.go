package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/careapi/care-backend/internal/core/ports"
)

const (
	whitelistKey = "cms:whitelist"
	whitelistTTL = 5 * time.Minute
)

// WhitelistCache is a read-through Redis decorator over the CMS
// whitelist client. Cache failures degrade to a direct CMS call, so
// the gateway's fail-open/fail-closed semantics are unchanged; the
// cache only shaves a CMS round-trip off the hot path.
type WhitelistCache struct {
	client *redis.Client
	source ports.Whitelist
	log    zerolog.Logger
}

func NewWhitelistCache(client *redis.Client, source ports.Whitelist, log zerolog.Logger) *WhitelistCache {
	return &WhitelistCache{client: client, source: source, log: log}
}

func (w *WhitelistCache) GetWhitelist(ctx context.Context) ([]string, error) {
	raw, err := w.client.Get(ctx, whitelistKey).Result()
	if err == nil {
		var users []string
		if jsonErr := json.Unmarshal([]byte(raw), &users); jsonErr == nil {
			return users, nil
		}
		// Unreadable cache entry: fall through to the source.
	} else if err != redis.Nil {
		w.log.Warn().Err(err).Msg("whitelist cache read failed")
	}

	users, err := w.source.GetWhitelist(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, jsonErr := json.Marshal(users); jsonErr == nil {
		if setErr := w.client.Set(ctx, whitelistKey, encoded, whitelistTTL).Err(); setErr != nil {
			w.log.Warn().Err(setErr).Msg("whitelist cache write failed")
		}
	}
	return users, nil
}
