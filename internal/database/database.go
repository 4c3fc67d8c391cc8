package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"

	"reelhouse/internal/game"
)

// Service persists agents, resolved plays and machine counters.
type Service interface {
	Health() map[string]string
	Close() error

	SaveAgent(ctx context.Context, a game.Agent) error
	DeleteAgent(ctx context.Context, identity string) error
	ListAgents(ctx context.Context) ([]game.Agent, error)
	RecordPlay(ctx context.Context, r game.PlayRecord) error
	SaveMachineState(ctx context.Context, nonce, totalPool uint64, cfg game.Config) error
	LoadMachineState(ctx context.Context) (nonce, totalPool uint64, cfg *game.Config, err error)
}

type service struct {
	pool *pgxpool.Pool
}

var (
	database   = getEnv("REELHOUSE_DB_DATABASE", "reelhouse")
	password   = getEnv("REELHOUSE_DB_PASSWORD", "postgres")
	username   = getEnv("REELHOUSE_DB_USERNAME", "postgres")
	host       = getEnv("REELHOUSE_DB_HOST", "localhost")
	port       = getEnv("REELHOUSE_DB_PORT", "5432")
	schema     = getEnv("REELHOUSE_DB_SCHEMA", "public")
	dbInstance *service
)

func New() Service {
	if dbInstance != nil {
		return dbInstance
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		username, password, host, port, database, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("[DB] Failed to create connection pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("[DB] Failed to connect to database: %v", err)
	}

	log.Println("[DB] Connected to Postgres")

	dbInstance = &service{pool: pool}
	return dbInstance
}

func (s *service) SaveAgent(ctx context.Context, a game.Agent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agents (identity, stake, room_card, commission, stake_time, last_settlement, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity) DO UPDATE SET
			stake = EXCLUDED.stake,
			room_card = EXCLUDED.room_card,
			commission = EXCLUDED.commission,
			stake_time = EXCLUDED.stake_time,
			last_settlement = EXCLUDED.last_settlement,
			is_active = EXCLUDED.is_active`,
		a.Identity, int64(a.Stake), int64(a.RoomCard), a.Commission, a.StakeTime, a.LastSettlement, a.IsActive)
	return err
}

func (s *service) DeleteAgent(ctx context.Context, identity string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE identity = $1`, identity)
	return err
}

func (s *service) ListAgents(ctx context.Context) ([]game.Agent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT identity, stake, room_card, commission, stake_time, last_settlement, is_active
		FROM agents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []game.Agent
	for rows.Next() {
		var a game.Agent
		var stake, card int64
		if err := rows.Scan(&a.Identity, &stake, &card, &a.Commission, &a.StakeTime, &a.LastSettlement, &a.IsActive); err != nil {
			return nil, err
		}
		a.Stake = uint64(stake)
		a.RoomCard = uint64(card)
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *service) RecordPlay(ctx context.Context, r game.PlayRecord) error {
	symbols := []int16{int16(r.Symbols[0]), int16(r.Symbols[1]), int16(r.Symbols[2])}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO plays (play_id, player, total_bet, payout, chain_count, multiplier, symbols, nonce, two_phase, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.PlayID, r.Player, int64(r.TotalBet), int64(r.Payout), int16(r.ChainCount),
		int32(r.Multiplier), symbols, int64(r.Nonce), r.TwoPhase, r.ResolvedAt)
	return err
}

func (s *service) SaveMachineState(ctx context.Context, nonce, totalPool uint64, cfg game.Config) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO machine_state (id, nonce, total_pool, config) VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			nonce = EXCLUDED.nonce,
			total_pool = EXCLUDED.total_pool,
			config = EXCLUDED.config`,
		int64(nonce), int64(totalPool), cfgJSON)
	return err
}

func (s *service) LoadMachineState(ctx context.Context) (uint64, uint64, *game.Config, error) {
	var nonce, pool int64
	var cfgJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT nonce, total_pool, config FROM machine_state WHERE id = 1`).Scan(&nonce, &pool, &cfgJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, nil, nil
	}
	if err != nil {
		return 0, 0, nil, err
	}
	var cfg *game.Config
	if len(cfgJSON) > 0 {
		cfg = new(game.Config)
		if err := json.Unmarshal(cfgJSON, cfg); err != nil {
			return 0, 0, nil, err
		}
	}
	return uint64(nonce), uint64(pool), cfg, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "Postgres is healthy"

	poolStats := s.pool.Stat()
	stats["total_conns"] = strconv.FormatInt(int64(poolStats.TotalConns()), 10)
	stats["idle_conns"] = strconv.FormatInt(int64(poolStats.IdleConns()), 10)
	stats["acquired_conns"] = strconv.FormatInt(int64(poolStats.AcquiredConns()), 10)

	return stats
}

func (s *service) Close() error {
	log.Println("[DB] Disconnecting from Postgres")
	s.pool.Close()
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
