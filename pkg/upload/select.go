package upload

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
)

// SelectPolicy controls how the per-task strategy picks a client for each
// upload.
type SelectPolicy string

const (
	// SelectRandom picks uniformly at random, matching the original
	// benchmark behavior.
	SelectRandom SelectPolicy = "random"

	// SelectRoundRobin cycles through the pool deterministically.
	SelectRoundRobin SelectPolicy = "round-robin"
)

// ParseSelectPolicy validates a policy name from configuration.
func ParseSelectPolicy(s string) (SelectPolicy, error) {
	switch SelectPolicy(s) {
	case SelectRandom, SelectRoundRobin:
		return SelectPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown selection policy %q (want %q or %q)", s, SelectRandom, SelectRoundRobin)
	}
}

// Selector picks an index into a client pool. Implementations are safe for
// concurrent use by the pool workers.
type Selector interface {
	Next(n int) int
}

// NewSelector builds a selector for the given policy.
func NewSelector(policy SelectPolicy) Selector {
	if policy == SelectRoundRobin {
		return &roundRobinSelector{}
	}
	return &randomSelector{rng: rand.New(rand.NewSource(rand.Int63()))}
}

type randomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *randomSelector) Next(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

type roundRobinSelector struct {
	next atomic.Uint64
}

func (s *roundRobinSelector) Next(n int) int {
	return int((s.next.Add(1) - 1) % uint64(n))
}
