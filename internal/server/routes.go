package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"

	"reelhouse/internal/game"
)

func (s *FiberServer) RegisterFiberRoutes() {
	// Apply CORS middleware
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))

	s.App.Get("/health", s.healthHandler)

	api := s.App.Group("/api/v1")

	admin := api.Group("/admin")
	admin.Post("/config", s.configureHandler)
	admin.Get("/config", s.getConfigHandler)
	admin.Post("/pool/withdraw", s.poolWithdrawHandler)
	admin.Post("/pool/sync", s.poolSyncHandler)

	api.Post("/agents", s.registerAgentHandler)
	api.Get("/agents/:identity", s.getAgentHandler)
	api.Delete("/agents/:identity", s.deregisterAgentHandler)
	api.Post("/agents/:identity/commission", s.withdrawCommissionHandler)

	api.Post("/play", s.playHandler)
	api.Post("/play/request", s.requestPlayHandler)
	api.Post("/play/settle", s.settlePlayHandler)
	api.Get("/plays/recent", s.recentPlaysHandler)

	// WebSocket route
	s.App.Get("/ws", websocket.New(s.playFeedHandler))
}

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"database": s.db.Health(),
		"cache":    s.cache.Health(),
		"machine": fiber.Map{
			"status":            "running",
			"pool_total":        s.machine.PoolTotal(),
			"nonce":             s.machine.Nonce(),
			"pending_plays":     s.machine.PendingCount(),
			"connected_clients": s.hub.GetClientCount(),
		},
	}
	return c.JSON(health)
}

type configRequest struct {
	SymbolWeights          [game.SYMBOL_COUNT]uint16 `json:"symbol_weights"`
	PayoutTriple           [game.SYMBOL_COUNT]uint16 `json:"payout_triple"`
	PayoutDouble           [game.SYMBOL_COUNT]uint16 `json:"payout_double"`
	CommissionRate         uint8                     `json:"commission_rate"`
	MaxAutoSpins           uint8                     `json:"max_auto_spins"`
	MinBet                 uint64                    `json:"min_bet"`
	StakeThreshold         uint64                    `json:"stake_threshold"`
	SettlementPeriodSecond uint64                    `json:"settlement_period_seconds"`
}

func (s *FiberServer) configureHandler(c *fiber.Ctx) error {
	var req configRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	cfg := game.Config{
		SymbolWeights:    req.SymbolWeights,
		PayoutTriple:     req.PayoutTriple,
		PayoutDouble:     req.PayoutDouble,
		CommissionRate:   req.CommissionRate,
		MaxAutoSpins:     req.MaxAutoSpins,
		MinBet:           req.MinBet,
		StakeThreshold:   req.StakeThreshold,
		SettlementPeriod: time.Duration(req.SettlementPeriodSecond) * time.Second,
	}
	if err := s.machine.Configure(cfg); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	s.persistMachineState(c)
	return c.JSON(fiber.Map{"message": "Configuration updated"})
}

func (s *FiberServer) getConfigHandler(c *fiber.Ctx) error {
	return c.JSON(s.machine.Config())
}

func (s *FiberServer) poolWithdrawHandler(c *fiber.Ctx) error {
	var body struct {
		To     string `json:"to"`
		Amount uint64 `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil || body.To == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := s.machine.WithdrawPool(c.Context(), body.To, body.Amount); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	s.persistMachineState(c)
	return c.JSON(fiber.Map{"message": "Pool withdrawal complete", "pool_total": s.machine.PoolTotal()})
}

func (s *FiberServer) poolSyncHandler(c *fiber.Ctx) error {
	total, err := s.machine.SyncPool(c.Context())
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	s.persistMachineState(c)
	return c.JSON(fiber.Map{"pool_total": total})
}

func (s *FiberServer) registerAgentHandler(c *fiber.Ctx) error {
	var req game.RegisterAgentRequest
	if err := c.BodyParser(&req); err != nil || req.Identity == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Identity and stake are required"})
	}

	card, err := s.machine.RegisterAgent(c.Context(), req.Identity, req.Stake)
	if err != nil {
		return c.Status(statusForError(err)).JSON(game.RegisterAgentResponse{Message: err.Error()})
	}
	s.persistAgent(c, req.Identity)
	return c.JSON(game.RegisterAgentResponse{Success: true, RoomCard: card})
}

func (s *FiberServer) getAgentHandler(c *fiber.Ctx) error {
	identity := c.Params("identity")
	agent, err := s.machine.Agent(identity)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(agent)
}

func (s *FiberServer) deregisterAgentHandler(c *fiber.Ctx) error {
	identity := c.Params("identity")
	amount, err := s.machine.DeregisterAgent(c.Context(), identity)
	if err != nil {
		return c.Status(statusForError(err)).JSON(game.WithdrawResponse{Message: err.Error()})
	}
	s.persistAgent(c, identity)
	return c.JSON(game.WithdrawResponse{Success: true, Amount: amount})
}

func (s *FiberServer) withdrawCommissionHandler(c *fiber.Ctx) error {
	identity := c.Params("identity")
	amount, err := s.machine.WithdrawCommission(c.Context(), identity)
	if err != nil {
		return c.Status(statusForError(err)).JSON(game.WithdrawResponse{Message: err.Error()})
	}
	s.persistAgent(c, identity)
	s.persistMachineState(c)
	return c.JSON(game.WithdrawResponse{Success: true, Amount: amount})
}

func (s *FiberServer) playHandler(c *fiber.Ctx) error {
	var req game.PlayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Player == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Player is required"})
	}

	result, err := s.machine.Play(c.Context(), req.Player, req.Bets, req.RoomCard)
	if err != nil {
		return c.Status(statusForError(err)).JSON(game.PlayResponse{Message: err.Error()})
	}

	record := s.recordPlay(c, req.Player, result, false)
	return c.JSON(game.PlayResponse{
		Success:    true,
		PlayID:     record.PlayID,
		Payout:     result.Payout,
		ChainCount: result.ChainCount,
		Multiplier: result.Multiplier,
		Symbols:    result.Symbols,
		Nonce:      result.Nonce,
	})
}

func (s *FiberServer) requestPlayHandler(c *fiber.Ctx) error {
	var req game.PlayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Player == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Player is required"})
	}

	handle, err := s.machine.RequestPlay(c.Context(), req.Player, req.Account, req.Bets, req.RoomCard)
	if err != nil {
		return c.Status(statusForError(err)).JSON(game.RequestPlayResponse{Message: err.Error()})
	}

	if pending, perr := s.machine.Pending(handle); perr == nil {
		if cerr := s.cache.SavePending(c.Context(), pending); cerr != nil {
			log.Printf("[SERVER] Failed to snapshot pending play %s: %v", handle, cerr)
		}
	}
	s.persistMachineState(c)
	return c.JSON(game.RequestPlayResponse{Success: true, Handle: handle})
}

func (s *FiberServer) settlePlayHandler(c *fiber.Ctx) error {
	var req game.SettlePlayRequest
	if err := c.BodyParser(&req); err != nil || req.Player == "" || req.Handle == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Player and handle are required"})
	}

	result, err := s.machine.SettlePlay(c.Context(), req.Handle, req.Player, req.Account)
	if err != nil {
		return c.Status(statusForError(err)).JSON(game.PlayResponse{Message: err.Error()})
	}

	if cerr := s.cache.DeletePending(c.Context(), req.Handle); cerr != nil {
		log.Printf("[SERVER] Failed to drop pending snapshot %s: %v", req.Handle, cerr)
	}
	record := s.recordPlay(c, req.Player, result, true)
	return c.JSON(game.PlayResponse{
		Success:    true,
		PlayID:     record.PlayID,
		Payout:     result.Payout,
		ChainCount: result.ChainCount,
		Multiplier: result.Multiplier,
		Symbols:    result.Symbols,
		Nonce:      result.Nonce,
	})
}

func (s *FiberServer) recentPlaysHandler(c *fiber.Ctx) error {
	limit := int64(c.QueryInt("limit", 20))
	records, err := s.cache.RecentPlays(c.Context(), limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to load recent plays"})
	}
	return c.JSON(records)
}

// playFeedHandler streams resolved plays to websocket clients.
func (s *FiberServer) playFeedHandler(conn *websocket.Conn) {
	player := conn.Query("player", "anonymous")

	log.Printf("[WS] New connection from player: %s", player)

	client := s.hub.RegisterClient(conn, player)

	if records, err := s.cache.RecentPlays(context.Background(), 20); err == nil {
		client.SendRecentPlays(records)
	}

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for player %s: %v", player, err)
			s.hub.UnregisterClient(conn)
			break
		}
		if messageType == websocket.TextMessage && string(message) == `{"type":"ping"}` {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
		}
	}
}

// recordPlay persists one resolved play everywhere it is observed: Postgres
// history, the Redis feed, the websocket hub and the machine counters.
func (s *FiberServer) recordPlay(c *fiber.Ctx, player string, result game.PlayResult, twoPhase bool) game.PlayRecord {
	record := game.PlayRecord{
		PlayID:     uuid.NewString(),
		Player:     player,
		TotalBet:   result.TotalBet,
		Payout:     result.Payout,
		ChainCount: result.ChainCount,
		Multiplier: result.Multiplier,
		Symbols:    result.Symbols,
		Nonce:      result.Nonce,
		TwoPhase:   twoPhase,
		ResolvedAt: time.Now(),
	}
	if err := s.db.RecordPlay(c.Context(), record); err != nil {
		log.Printf("[SERVER] Failed to persist play %s: %v", record.PlayID, err)
	}
	if err := s.cache.StorePlay(c.Context(), record); err != nil {
		log.Printf("[SERVER] Failed to cache play %s: %v", record.PlayID, err)
	}
	s.hub.BroadcastPlay(record)
	s.persistMachineState(c)
	s.persistAllAgents(c)
	return record
}

func (s *FiberServer) persistMachineState(c *fiber.Ctx) {
	if err := s.db.SaveMachineState(c.Context(), s.machine.Nonce(), s.machine.PoolTotal(), s.machine.Config()); err != nil {
		log.Printf("[SERVER] Failed to persist machine state: %v", err)
	}
}

func (s *FiberServer) persistAgent(c *fiber.Ctx, identity string) {
	agent, err := s.machine.Agent(identity)
	if err != nil {
		if derr := s.db.DeleteAgent(c.Context(), identity); derr != nil {
			log.Printf("[SERVER] Failed to delete agent %s: %v", identity, derr)
		}
		return
	}
	if err := s.db.SaveAgent(c.Context(), agent); err != nil {
		log.Printf("[SERVER] Failed to persist agent %s: %v", identity, err)
	}
}

func (s *FiberServer) persistAllAgents(c *fiber.Ctx) {
	for _, agent := range s.machine.Agents() {
		if err := s.db.SaveAgent(c.Context(), agent); err != nil {
			log.Printf("[SERVER] Failed to persist agent %s: %v", agent.Identity, err)
		}
	}
}

// statusForError maps core errors onto HTTP statuses. Anything that is not a
// rule error is an upstream failure (oracle unreachable, custody outage) and
// must not be reported as the client's fault.
func statusForError(err error) int {
	switch {
	case errors.Is(err, game.ErrPendingNotFound), errors.Is(err, game.ErrAgentNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, game.ErrOracleStale):
		return fiber.StatusConflict
	case errors.Is(err, game.ErrInsufficientPool), errors.Is(err, game.ErrInsufficientFunds):
		return fiber.StatusPaymentRequired
	case game.IsRuleError(err):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusBadGateway
	}
}
