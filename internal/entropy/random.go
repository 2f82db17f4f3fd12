// Package entropy owns every source of randomness in the simulation. Seeded streams drive
// the monthly tick; random.org (or crypto/rand) only picks a seed when none is configured.
package entropy

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	randomOrgEndpoint = "https://api.random.org/json-rpc/4/invoke"

	// random.org caps integers at 1e9, so a seed is two base-1e9 digits.
	seedDigit = 1_000_000_000
)

// Client asks random.org for world seeds.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: randomOrgEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type seedRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	Method  string     `json:"method"`
	Params  seedParams `json:"params"`
	ID      int        `json:"id"`
}

type seedParams struct {
	APIKey      string `json:"apiKey"`
	N           int    `json:"n"`
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Replacement bool   `json:"replacement"`
}

type seedResponse struct {
	Result *struct {
		Random struct {
			Data []int64 `json:"data"`
		} `json:"random"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Seed draws one seed in [1, 1e18) from random.org.
func (c *Client) Seed(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, errors.New("random.org: no api key")
	}
	body, err := json.Marshal(seedRequest{
		JSONRPC: "2.0",
		Method:  "generateIntegers",
		Params:  seedParams{APIKey: c.apiKey, N: 2, Min: 0, Max: seedDigit - 1, Replacement: true},
		ID:      1,
	})
	if err != nil {
		return 0, fmt.Errorf("random.org request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("random.org request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("random.org fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("random.org fetch: status %d", resp.StatusCode)
	}

	var out seedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("random.org parse: %w", err)
	}
	if out.Error != nil {
		return 0, fmt.Errorf("random.org api error %d: %s", out.Error.Code, out.Error.Message)
	}
	if out.Result == nil || len(out.Result.Random.Data) != 2 {
		return 0, errors.New("random.org: expected two integers")
	}
	hi, lo := out.Result.Random.Data[0], out.Result.Random.Data[1]
	if hi < 0 || hi >= seedDigit || lo < 0 || lo >= seedDigit {
		return 0, fmt.Errorf("random.org: integers %d, %d out of range", hi, lo)
	}
	return max(1, hi*seedDigit+lo), nil
}

// NewSeed draws a fresh non-zero world seed, from random.org when c is enabled and from
// crypto/rand otherwise or when the request fails.
func NewSeed(ctx context.Context, c *Client) int64 {
	if c.Enabled() {
		seed, err := c.Seed(ctx)
		if err == nil {
			return seed
		}
		slog.Warn("random.org seed unavailable, using crypto/rand", "error", err)
	}
	return cryptoSeed()
}

// cryptoSeed returns 62 random bits, never zero.
func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()&(1<<62-1) | 1
	}
	return max(1, int64(binary.LittleEndian.Uint64(buf[:])>>2))
}
