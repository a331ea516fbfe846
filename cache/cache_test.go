package cache

import (
	"sync"
	"testing"

	"github.com/hupe1980/mahd/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ X, Y int }

func TestMemory_GetPut(t *testing.T) {
	c := NewMemory[int, point, string]()

	_, ok := c.Get(1, point{0, 0})
	assert.False(t, ok)

	stored := c.Put(1, point{0, 0}, core.Solution[string]{Value: core.CostValue(3), Action: "up"})
	assert.True(t, stored)

	// Equal by value, distinct variable.
	sol, ok := c.Get(1, point{X: 0, Y: 0})
	require.True(t, ok)
	assert.Equal(t, 3.0, sol.Value.Cost)
	assert.Equal(t, "up", sol.Action)

	// Same observation for another agent is a different key.
	_, ok = c.Get(2, point{0, 0})
	assert.False(t, ok)

	assert.Equal(t, 1, c.Len())
}

func TestMemory_FirstPutWins(t *testing.T) {
	c := NewMemory[string, int, int]()

	assert.True(t, c.Put("a", 1, core.Solution[int]{Value: core.CostValue(1), Action: 10}))
	assert.False(t, c.Put("a", 1, core.Solution[int]{Value: core.CostValue(99), Action: 99}))

	sol, ok := c.Get("a", 1)
	require.True(t, ok)
	assert.Equal(t, 1.0, sol.Value.Cost)
	assert.Equal(t, 10, sol.Action)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.LenAgent("a"))
	assert.Equal(t, 0, c.LenAgent("b"))
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	c := NewMemory[int, int, int]()

	var wg sync.WaitGroup
	for agent := 0; agent < 4; agent++ {
		wg.Add(1)
		go func(a int) {
			defer wg.Done()
			for obs := 0; obs < 100; obs++ {
				c.Put(a, obs, core.Solution[int]{Value: core.CostValue(float64(obs)), Action: obs})
				_, _ = c.Get(a, obs)
			}
		}(agent)
	}
	wg.Wait()

	assert.Equal(t, 400, c.Len())
	for agent := 0; agent < 4; agent++ {
		assert.Equal(t, 100, c.LenAgent(agent))
	}
}

func TestMemory_ImplementsSolutionCache(t *testing.T) {
	var _ SolutionCache[int, int, int] = NewMemory[int, int, int]()
}
