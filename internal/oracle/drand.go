package oracle

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const DEFAULT_BEACON_URL = "https://api.drand.sh"

// DrandBeacon reads the latest round from a drand-compatible HTTP endpoint.
type DrandBeacon struct {
	baseURL string
	client  *http.Client
}

func NewDrandBeacon() *DrandBeacon {
	url := os.Getenv("ORACLE_URL")
	if url == "" {
		url = DEFAULT_BEACON_URL
	}
	return &DrandBeacon{
		baseURL: url,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type drandResponse struct {
	Round      uint64 `json:"round"`
	Randomness string `json:"randomness"`
}

func (d *DrandBeacon) Read(ctx context.Context) (Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/public/latest", nil)
	if err != nil {
		return Reading{}, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("beacon fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("beacon fetch: status %d", resp.StatusCode)
	}

	var body drandResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Reading{}, fmt.Errorf("beacon decode: %w", err)
	}
	raw, err := hex.DecodeString(body.Randomness)
	if err != nil || len(raw) != 32 {
		return Reading{}, fmt.Errorf("beacon decode: bad randomness %q", body.Randomness)
	}

	var r Reading
	copy(r.Value[:], raw)
	r.Round = body.Round
	log.Printf("[ORACLE] Round %d fetched", r.Round)
	return r, nil
}
