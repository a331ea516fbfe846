package solver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/mahd/core"
)

var (
	// ErrAlreadyInitialized is returned by Initialize on an initialized solver.
	ErrAlreadyInitialized = errors.New("solver is already initialized")
	// ErrNotInitialized is returned by Cleanup on a solver that is not initialized.
	ErrNotInitialized = errors.New("solver is not initialized")
	// ErrUnbound is returned by Domain before SolveWith bound a producer.
	ErrUnbound = errors.New("solver is not bound to a domain")
)

// Base bundles lifecycle state, identity and the bound domain producer.
// All exported methods are goroutine-safe.
type Base struct {
	name        string
	description string

	mu          sync.Mutex
	initialized bool
	producer    core.DomainProducer
	domain      core.SingleAgentDomain
}

// NewBase constructs a Base with a generated description.
func NewBase(name string) Base {
	return Base{
		name:        name,
		description: fmt.Sprintf("Solver %s", name),
	}
}

// Name returns the solver name.
func (b *Base) Name() string { return b.name }

// Description returns the solver description.
func (b *Base) Description() string { return b.description }

// SetDescription updates the description.
func (b *Base) SetDescription(desc string) { b.description = desc }

// Initialize marks the solver initialized. Calls are not idempotent.
func (b *Base) Initialize(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return fmt.Errorf("%s: %w", b.name, ErrAlreadyInitialized)
	}
	b.initialized = true
	return nil
}

// Cleanup marks the solver not initialized and drops the cached domain.
func (b *Base) Cleanup(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return fmt.Errorf("%s: %w", b.name, ErrNotInitialized)
	}
	b.initialized = false
	b.domain = nil
	return nil
}

// Initialized reports whether Initialize ran without a matching Cleanup.
func (b *Base) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// Bind stores the domain producer. A later Bind replaces the producer and
// drops the cached domain.
func (b *Base) Bind(producer core.DomainProducer) error {
	if producer == nil {
		return fmt.Errorf("%s: %w: nil domain producer", b.name, core.ErrInvalidConfig)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.producer = producer
	b.domain = nil
	return nil
}

// Domain returns the bound domain, calling the producer on first use. A
// failed production is not cached.
func (b *Base) Domain() (core.SingleAgentDomain, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.domain != nil {
		return b.domain, nil
	}
	if b.producer == nil {
		return nil, fmt.Errorf("%s: %w", b.name, ErrUnbound)
	}
	d, err := b.producer()
	if err != nil {
		return nil, err
	}
	b.domain = d
	return d, nil
}

// DomainAs returns the bound domain asserted to T.
func DomainAs[T any](b *Base) (T, error) {
	var zero T
	d, err := b.Domain()
	if err != nil {
		return zero, err
	}
	t, ok := d.(T)
	if !ok {
		return zero, fmt.Errorf("%s: %w: domain is %T, want %T", b.name, core.ErrInvalidConfig, d, zero)
	}
	return t, nil
}
