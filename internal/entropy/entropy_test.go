package entropy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func draws(s *Streams, st Stream, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = s.Get(st).Int63()
	}
	return out
}

func TestStreamsAreReproducible(t *testing.T) {
	a := draws(NewStreams(42), StreamAI, 5)
	b := draws(NewStreams(42), StreamAI, 5)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("draw %d: %d != %d", i, a[i], b[i])
		}
	}
}

func TestStreamsAreIndependent(t *testing.T) {
	s := NewStreams(42)
	ai := draws(s, StreamAI, 3)

	other := NewStreams(42)
	draws(other, StreamEvents, 10)
	if got := draws(other, StreamAI, 3); got[0] != ai[0] || got[2] != ai[2] {
		t.Errorf("drawing from events shifted the ai stream: %v vs %v", got, ai)
	}
	if draws(NewStreams(42), StreamWorld, 1)[0] == ai[0] {
		t.Error("world and ai streams start with the same draw")
	}
}

func TestReseed(t *testing.T) {
	s := NewStreams(1)
	first := draws(s, StreamAI, 1)[0]
	s.Reseed(1)
	if got := draws(s, StreamAI, 1)[0]; got != first {
		t.Errorf("reseeded draw = %d, want %d", got, first)
	}
	if s.Seed() != 1 {
		t.Errorf("Seed() = %d, want 1", s.Seed())
	}
}

func TestNewSeedWithoutClient(t *testing.T) {
	if NewSeed(context.Background(), nil) == 0 {
		t.Error("NewSeed returned zero")
	}
	if NewClient("") != nil {
		t.Error("empty key should yield a nil client")
	}
}

// randomOrg serves generateIntegers answers from data, or an error body when data is nil.
func randomOrg(t *testing.T, data []int64) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req seedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Method != "generateIntegers" || req.Params.N != 2 || req.Params.Max != seedDigit-1 {
			t.Errorf("request = %+v", req)
		}
		if data == nil {
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 401, "message": "bad key"}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"random": map[string]any{"data": data}}})
	}))
	t.Cleanup(srv.Close)

	c := NewClient("key")
	c.endpoint = srv.URL
	return c
}

func TestClientSeed(t *testing.T) {
	c := randomOrg(t, []int64{123, 456})
	if !c.Enabled() {
		t.Fatal("client with key should be enabled")
	}
	got, err := c.Seed(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(123*seedDigit + 456); got != want {
		t.Errorf("Seed = %d, want %d", got, want)
	}
	if got := NewSeed(context.Background(), c); got != 123*seedDigit+456 {
		t.Errorf("NewSeed = %d, want the random.org seed", got)
	}
}

func TestClientSeedFallsBack(t *testing.T) {
	tests := []struct {
		name string
		data []int64
	}{
		{"api error", nil},
		{"short answer", []int64{7}},
		{"out of range", []int64{-1, seedDigit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := randomOrg(t, tt.data)
			if _, err := c.Seed(context.Background()); err == nil {
				t.Error("Seed accepted a bad answer")
			}
			if NewSeed(context.Background(), c) == 0 {
				t.Error("fallback seed is zero")
			}
		})
	}
}
