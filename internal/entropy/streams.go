package entropy

import (
	"math/rand"
	"sync"
)

// Stream names an independent random sequence. Each stage of the tick draws from its own
// stream so adding draws to one stage never shifts another.
type Stream uint8

const (
	StreamWorld Stream = iota
	StreamAI
	StreamAcceptance
	StreamEvents
	streamCount
)

var streamNames = [...]string{"world", "ai", "acceptance", "events"}

func (s Stream) String() string {
	if int(s) < len(streamNames) {
		return streamNames[s]
	}
	return "unknown"
}

// streamOffset keeps stream seeds clear of the offsets world generation uses.
const streamOffset = 1000

// Streams hands out the seeded generators for one simulation. A *rand.Rand is not safe for
// concurrent use; callers draw from a stream on one goroutine at a time.
type Streams struct {
	seed int64

	mu   sync.Mutex
	rngs [streamCount]*rand.Rand
}

// NewStreams creates the stream set for seed.
func NewStreams(seed int64) *Streams {
	return &Streams{seed: seed}
}

// Seed returns the seed every stream derives from.
func (s *Streams) Seed() int64 { return s.seed }

// Get returns the generator for stream st, creating it on first use.
func (s *Streams) Get(st Stream) *rand.Rand {
	if st >= streamCount {
		st = StreamEvents
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rngs[st] == nil {
		s.rngs[st] = rand.New(rand.NewSource(s.seed + streamOffset + int64(st)*100))
	}
	return s.rngs[st]
}

// Reseed restarts every stream from seed.
func (s *Streams) Reseed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
	s.rngs = [streamCount]*rand.Rand{}
}
