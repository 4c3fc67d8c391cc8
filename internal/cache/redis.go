package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"reelhouse/internal/game"
)

const (
	REDIS_KEY_RECENT_PLAYS = "slot:plays:recent"
	REDIS_KEY_PENDING      = "slot:pending"
	RECENT_PLAYS_LIMIT     = 100
	PLAY_FEED_TTL          = 24 * time.Hour
)

type Service interface {
	GetClient() *redis.Client
	Health() map[string]string
	Close() error

	StorePlay(ctx context.Context, record game.PlayRecord) error
	RecentPlays(ctx context.Context, limit int64) ([]game.PlayRecord, error)
	SavePending(ctx context.Context, p game.PendingPlay) error
	DeletePending(ctx context.Context, handle string) error
	LoadPendings(ctx context.Context) ([]game.PendingPlay, error)
}

type service struct {
	client *redis.Client
}

var (
	redisAddr     = getEnv("REDIS_URL", "localhost:6379")
	redisPassword = getEnv("REDIS_PASSWORD", "")
	redisDB       = getEnvAsInt("REDIS_DB", 0)
	cacheInstance *service
)

func New() Service {
	if cacheInstance != nil {
		return cacheInstance
	}

	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     redisPassword,
		DB:           redisDB,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("[CACHE] Redis connection failed: %v", err)
		log.Println("[CACHE] Running without Redis cache")
		return nil
	}

	log.Println("[CACHE] Redis connected successfully")

	cacheInstance = &service{
		client: client,
	}

	return cacheInstance
}

func (s *service) GetClient() *redis.Client {
	return s.client
}

// StorePlay pushes a resolved play onto the capped recent-plays feed.
func (s *service) StorePlay(ctx context.Context, record game.PlayRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, REDIS_KEY_RECENT_PLAYS, data)
	pipe.LTrim(ctx, REDIS_KEY_RECENT_PLAYS, 0, RECENT_PLAYS_LIMIT-1)
	pipe.Expire(ctx, REDIS_KEY_RECENT_PLAYS, PLAY_FEED_TTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *service) RecentPlays(ctx context.Context, limit int64) ([]game.PlayRecord, error) {
	if limit <= 0 || limit > RECENT_PLAYS_LIMIT {
		limit = RECENT_PLAYS_LIMIT
	}
	raw, err := s.client.LRange(ctx, REDIS_KEY_RECENT_PLAYS, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	records := make([]game.PlayRecord, 0, len(raw))
	for _, item := range raw {
		var r game.PlayRecord
		if json.Unmarshal([]byte(item), &r) == nil {
			records = append(records, r)
		}
	}
	return records, nil
}

// SavePending mirrors an outstanding two-phase request so it survives a
// restart. The machine remains the source of truth at runtime.
func (s *service) SavePending(ctx context.Context, p game.PendingPlay) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, REDIS_KEY_PENDING, p.Handle, data).Err()
}

func (s *service) DeletePending(ctx context.Context, handle string) error {
	return s.client.HDel(ctx, REDIS_KEY_PENDING, handle).Err()
}

func (s *service) LoadPendings(ctx context.Context) ([]game.PendingPlay, error) {
	raw, err := s.client.HGetAll(ctx, REDIS_KEY_PENDING).Result()
	if err != nil {
		return nil, err
	}
	pendings := make([]game.PendingPlay, 0, len(raw))
	for _, item := range raw {
		var p game.PendingPlay
		if json.Unmarshal([]byte(item), &p) == nil {
			pendings = append(pendings, p)
		}
	}
	return pendings, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	_, err := s.client.Ping(ctx).Result()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("redis down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "Redis is healthy"

	poolStats := s.client.PoolStats()
	stats["hits"] = strconv.FormatUint(uint64(poolStats.Hits), 10)
	stats["misses"] = strconv.FormatUint(uint64(poolStats.Misses), 10)
	stats["timeouts"] = strconv.FormatUint(uint64(poolStats.Timeouts), 10)
	stats["total_conns"] = strconv.FormatUint(uint64(poolStats.TotalConns), 10)
	stats["idle_conns"] = strconv.FormatUint(uint64(poolStats.IdleConns), 10)
	stats["stale_conns"] = strconv.FormatUint(uint64(poolStats.StaleConns), 10)

	return stats
}

func (s *service) Close() error {
	log.Println("[CACHE] Disconnecting from Redis")
	return s.client.Close()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
