package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a required factory or setting is missing
	// or malformed at construction time.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingDomainFactory is returned on the first solve attempt for an
	// agent when no single-agent domain factory was configured.
	ErrMissingDomainFactory = errors.New("single-agent domain factory is not configured")

	// ErrMissingAgentObservation is returned when a joint observation lacks the
	// component of an agent of the fixed agent set.
	ErrMissingAgentObservation = errors.New("joint observation has no component for agent")

	// ErrUnknownAgent is returned for agents outside the fixed agent set.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrDuplicateAgent is returned when a domain reports the same agent twice.
	ErrDuplicateAgent = errors.New("duplicate agent")

	// ErrNoAgents is returned when a multi-agent domain reports no agents.
	ErrNoAgents = errors.New("multi-agent domain has no agents")

	// ErrNotSolved is returned by policy queries before a successful solve.
	ErrNotSolved = errors.New("solver has not been solved")

	// ErrInvalidState is returned for operations not allowed in the current
	// lifecycle state.
	ErrInvalidState = errors.New("invalid solver state")
)

// AgentError attaches the agent, observation and operation to a failure so
// callers can tell which subproblem triggered it. Unwrap exposes the original
// error unchanged.
type AgentError struct {
	Agent       any
	Observation any
	Op          string
	Err         error
}

// Error implements error.
func (e *AgentError) Error() string {
	if e.Observation != nil {
		return fmt.Sprintf("%s: agent %v (observation %v): %v", e.Op, e.Agent, e.Observation, e.Err)
	}
	return fmt.Sprintf("%s: agent %v: %v", e.Op, e.Agent, e.Err)
}

// Unwrap returns the wrapped error.
func (e *AgentError) Unwrap() error { return e.Err }

// WarningCode classifies non-fatal diagnostics.
type WarningCode string

const (
	// WarnHeuristicOverridden signals that a caller-supplied multi-agent
	// heuristic was replaced by the decomposition heuristic.
	WarnHeuristicOverridden WarningCode = "heuristic_overridden"
)

// Warning is a non-fatal diagnostic event.
type Warning struct {
	Code    WarningCode
	Message string
}
