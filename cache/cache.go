package cache

import (
	"sync"

	"github.com/hupe1980/mahd/core"
)

// Key identifies one cached solution.
type Key[A comparable, O comparable] struct {
	Agent       A
	Observation O
}

// Stats is a snapshot of cache usage as observed by the cache's owner.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// SolutionCache stores per-agent solutions. Implementations must be safe for
// concurrent use.
type SolutionCache[A comparable, O comparable, Act any] interface {
	// Get returns the solution stored for (agent, obs).
	Get(agent A, obs O) (core.Solution[Act], bool)
	// Put stores sol unless an entry already exists and reports whether sol
	// was stored.
	Put(agent A, obs O, sol core.Solution[Act]) bool
	// Len returns the number of entries.
	Len() int
}

// Memory is an unbounded in-memory SolutionCache.
type Memory[A comparable, O comparable, Act any] struct {
	mu      sync.RWMutex
	entries map[Key[A, O]]core.Solution[Act]
	perAg   map[A]int
}

// NewMemory creates an empty in-memory cache.
func NewMemory[A comparable, O comparable, Act any]() *Memory[A, O, Act] {
	return &Memory[A, O, Act]{
		entries: make(map[Key[A, O]]core.Solution[Act]),
		perAg:   make(map[A]int),
	}
}

// Get implements SolutionCache.
func (m *Memory[A, O, Act]) Get(agent A, obs O) (core.Solution[Act], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sol, ok := m.entries[Key[A, O]{Agent: agent, Observation: obs}]
	return sol, ok
}

// Put implements SolutionCache. The first stored solution for a key wins.
func (m *Memory[A, O, Act]) Put(agent A, obs O, sol core.Solution[Act]) bool {
	k := Key[A, O]{Agent: agent, Observation: obs}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[k]; exists {
		return false
	}
	m.entries[k] = sol
	m.perAg[agent]++
	return true
}

// Len implements SolutionCache.
func (m *Memory[A, O, Act]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// LenAgent returns the number of entries stored for agent.
func (m *Memory[A, O, Act]) LenAgent(agent A) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.perAg[agent]
}
