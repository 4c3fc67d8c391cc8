package game

import "time"

// Transport-facing request/response shapes, shared by the HTTP handlers and
// the websocket feed.

type PlayRequest struct {
	Player   string               `json:"player"`
	Account  string               `json:"account,omitempty"` // spending account; defaults to player
	Bets     [SYMBOL_COUNT]uint64 `json:"bets"`
	RoomCard *uint64              `json:"room_card,omitempty"`
}

type PlayResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message,omitempty"`
	PlayID     string   `json:"play_id,omitempty"`
	Payout     uint64   `json:"payout"`
	ChainCount uint8    `json:"chain_count"`
	Multiplier uint32   `json:"multiplier"`
	Symbols    [3]uint8 `json:"symbols"`
	Nonce      uint64   `json:"nonce"`
}

type RequestPlayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Handle  string `json:"handle,omitempty"`
}

type SettlePlayRequest struct {
	Player  string `json:"player"`
	Account string `json:"account,omitempty"` // must match the escrowed account
	Handle  string `json:"handle"`
}

type RegisterAgentRequest struct {
	Identity string `json:"identity"`
	Stake    uint64 `json:"stake"`
}

type RegisterAgentResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	RoomCard uint64 `json:"room_card,omitempty"`
}

type WithdrawResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Amount  uint64 `json:"amount"`
}

// PlayRecord is what gets persisted and broadcast after a resolved play.
type PlayRecord struct {
	PlayID     string    `json:"play_id"`
	Player     string    `json:"player"`
	TotalBet   uint64    `json:"total_bet"`
	Payout     uint64    `json:"payout"`
	ChainCount uint8     `json:"chain_count"`
	Multiplier uint32    `json:"multiplier"`
	Symbols    [3]uint8  `json:"symbols"`
	Nonce      uint64    `json:"nonce"`
	TwoPhase   bool      `json:"two_phase"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
