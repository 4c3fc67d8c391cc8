package server

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"reelhouse/internal/cache"
	"reelhouse/internal/database"
	"reelhouse/internal/game"
	"reelhouse/internal/oracle"
)

type FiberServer struct {
	*fiber.App

	db      database.Service
	cache   cache.Service
	machine *game.Machine
	hub     *game.Hub
}

func New() *FiberServer {
	// Initialize database
	db := database.New()

	// Initialize Redis cache
	redisService := cache.New()
	if redisService == nil {
		log.Fatal("[SERVER] Redis is required for play feed and pending-play snapshots")
	}

	// Randomness beacon, with the last reading mirrored into Redis
	beacon := oracle.NewCachedBeacon(oracle.NewDrandBeacon(), redisService.GetClient())

	// Funds ledger: in-process custody for single-node deployments
	funds := game.NewMemoryFunds()

	machine, err := game.NewMachine(game.DefaultConfig(), funds, beacon)
	if err != nil {
		log.Fatalf("[SERVER] Invalid default config: %v", err)
	}

	restoreMachine(machine, db, redisService)

	hub := game.NewHub()

	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "reelhouse",
			AppName:       "reelhouse",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		db:      db,
		cache:   redisService,
		machine: machine,
		hub:     hub,
	}

	// Apply global middleware
	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	go hub.Run()

	log.Println("[SERVER] Machine restored and play feed started")

	return server
}

// restoreMachine rehydrates the rule set, counters, agents and pending plays
// after a restart.
func restoreMachine(machine *game.Machine, db database.Service, redisService cache.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	nonce, pool, cfg, err := db.LoadMachineState(ctx)
	if err != nil {
		log.Printf("[SERVER] Failed to load machine state: %v", err)
	}
	if cfg != nil {
		if err := machine.Configure(*cfg); err != nil {
			log.Printf("[SERVER] Persisted config rejected, keeping defaults: %v", err)
		}
	}
	agents, err := db.ListAgents(ctx)
	if err != nil {
		log.Printf("[SERVER] Failed to load agents: %v", err)
	}
	pendings, err := redisService.LoadPendings(ctx)
	if err != nil {
		log.Printf("[SERVER] Failed to load pending plays: %v", err)
	}
	machine.Restore(nonce, pool, agents, pendings)
	log.Printf("[SERVER] Restored nonce=%d pool=%d agents=%d pendings=%d", nonce, pool, len(agents), len(pendings))
}

// Shutdown gracefully shuts down the server and its connections.
func (s *FiberServer) Shutdown() error {
	log.Println("[SERVER] Shutting down...")

	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return nil
}
