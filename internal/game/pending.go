package game

import "time"

// PendingPlay is one outstanding two-phase request. It is created by
// RequestPlay and consumed exactly once by the matching SettlePlay; there is
// no partial settlement.
type PendingPlay struct {
	Handle        string    `json:"handle"`
	Player        string    `json:"player"`
	PlayerAccount string    `json:"player_account"`
	PoolAccount   string    `json:"pool_account"`
	RequestNonce  uint64    `json:"request_nonce"`
	RequestMarker uint64    `json:"request_marker"`
	TotalBet      uint64    `json:"total_bet"`
	Bets          Bets      `json:"bets"`
	HasRoomCard   bool      `json:"has_room_card"`
	RoomCard      uint64    `json:"room_card"`
	EntropyBefore [32]byte  `json:"entropy_before"`
	CreatedAt     time.Time `json:"created_at"`
}
