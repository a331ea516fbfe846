package core

import "fmt"

// MultiAgentDomain is the only capability the decomposition layer needs from
// a multi-agent domain: the fixed set of agents. The order of the returned
// slice is the fixed agent order used for lifecycle propagation.
type MultiAgentDomain[A comparable] interface {
	Agents() []A
}

// SingleAgentDomain is opaque to the decomposition layer; single-agent
// solvers type-assert it to whatever shape they require.
type SingleAgentDomain any

// MultiAgentDomainFactory builds a fresh multi-agent domain.
type MultiAgentDomainFactory[A comparable] func() (MultiAgentDomain[A], error)

// SingleAgentDomainFactory projects a multi-agent domain onto one agent.
type SingleAgentDomainFactory[A comparable] func(md MultiAgentDomain[A], agent A) (SingleAgentDomain, error)

// DomainProducer is a zero-argument domain builder bound to one agent. It is
// what a single-agent solver receives in SolveWith.
type DomainProducer func() (SingleAgentDomain, error)

// AgentSet validates and returns the agent set of a domain.
func AgentSet[A comparable](md MultiAgentDomain[A]) ([]A, error) {
	if md == nil {
		return nil, fmt.Errorf("%w: multi-agent domain is nil", ErrInvalidConfig)
	}
	return ValidateAgents(md.Agents())
}

// ValidateAgents checks that agents is non-empty and free of duplicates and
// returns a private copy preserving order.
func ValidateAgents[A comparable](agents []A) ([]A, error) {
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}
	seen := make(map[A]struct{}, len(agents))
	out := make([]A, 0, len(agents))
	for _, a := range agents {
		if _, dup := seen[a]; dup {
			return nil, &AgentError{Agent: a, Op: "enumerate agents", Err: ErrDuplicateAgent}
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}
