package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mahd/core"
)

func TestBase_Lifecycle(t *testing.T) {
	b := NewBase("s")
	ctx := context.Background()

	assert.Equal(t, "s", b.Name())
	assert.Equal(t, "Solver s", b.Description())
	b.SetDescription("custom")
	assert.Equal(t, "custom", b.Description())

	assert.ErrorIs(t, b.Cleanup(ctx), ErrNotInitialized)
	require.NoError(t, b.Initialize(ctx))
	assert.True(t, b.Initialized())
	assert.ErrorIs(t, b.Initialize(ctx), ErrAlreadyInitialized)
	require.NoError(t, b.Cleanup(ctx))
	assert.False(t, b.Initialized())
}

func TestBase_Domain(t *testing.T) {
	b := NewBase("s")

	_, err := b.Domain()
	require.ErrorIs(t, err, ErrUnbound)
	assert.ErrorIs(t, b.Bind(nil), core.ErrInvalidConfig)

	calls := 0
	require.NoError(t, b.Bind(func() (core.SingleAgentDomain, error) {
		calls++
		return "domain", nil
	}))

	d, err := b.Domain()
	require.NoError(t, err)
	assert.Equal(t, "domain", d)
	_, err = b.Domain()
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "the produced domain is cached")

	s, err := DomainAs[string](&b)
	require.NoError(t, err)
	assert.Equal(t, "domain", s)

	_, err = DomainAs[int](&b)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestBase_DomainFailureIsNotCached(t *testing.T) {
	b := NewBase("s")
	boom := errors.New("boom")
	fail := true
	require.NoError(t, b.Bind(func() (core.SingleAgentDomain, error) {
		if fail {
			return nil, boom
		}
		return 1, nil
	}))

	_, err := b.Domain()
	require.ErrorIs(t, err, boom)

	fail = false
	d, err := b.Domain()
	require.NoError(t, err)
	assert.Equal(t, 1, d)
}
