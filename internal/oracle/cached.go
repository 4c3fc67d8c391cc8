package oracle

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	REDIS_KEY_ORACLE_VALUE = "oracle:latest:value"
	REDIS_KEY_ORACLE_ROUND = "oracle:latest:round"
	ORACLE_CACHE_TTL       = 10 * time.Minute
)

// CachedBeacon mirrors the last reading into Redis so that instances sharing
// a cache agree on the latest round, and so a short origin outage falls back
// to the cached value instead of failing settlements outright.
type CachedBeacon struct {
	origin Beacon
	client *redis.Client
}

func NewCachedBeacon(origin Beacon, client *redis.Client) *CachedBeacon {
	return &CachedBeacon{origin: origin, client: client}
}

func (c *CachedBeacon) Read(ctx context.Context) (Reading, error) {
	r, err := c.origin.Read(ctx)
	if err != nil {
		cached, cerr := c.readCache(ctx)
		if cerr != nil {
			return Reading{}, err
		}
		log.Printf("[ORACLE] Origin unavailable, serving cached round %d: %v", cached.Round, err)
		return cached, nil
	}
	c.client.Set(ctx, REDIS_KEY_ORACLE_VALUE, hex.EncodeToString(r.Value[:]), ORACLE_CACHE_TTL)
	c.client.Set(ctx, REDIS_KEY_ORACLE_ROUND, r.Round, ORACLE_CACHE_TTL)
	return r, nil
}

func (c *CachedBeacon) readCache(ctx context.Context) (Reading, error) {
	val, err := c.client.Get(ctx, REDIS_KEY_ORACLE_VALUE).Result()
	if err != nil {
		return Reading{}, err
	}
	round, err := c.client.Get(ctx, REDIS_KEY_ORACLE_ROUND).Uint64()
	if err != nil {
		return Reading{}, err
	}
	raw, err := hex.DecodeString(val)
	if err != nil {
		return Reading{}, err
	}
	if len(raw) != 32 {
		return Reading{}, errors.New("cached oracle value is not 32 bytes")
	}
	var r Reading
	copy(r.Value[:], raw)
	r.Round = round
	return r, nil
}
