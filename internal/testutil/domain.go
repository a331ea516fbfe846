package testutil

import "github.com/hupe1980/mahd/core"

// StaticDomain is a multi-agent domain with a fixed agent list.
type StaticDomain[A comparable] struct {
	AgentList []A
}

// NewStaticDomain creates a StaticDomain.
func NewStaticDomain[A comparable](agents ...A) *StaticDomain[A] {
	return &StaticDomain[A]{AgentList: agents}
}

// Agents implements core.MultiAgentDomain.
func (d *StaticDomain[A]) Agents() []A { return d.AgentList }

// Factory returns a core.MultiAgentDomainFactory that always yields d.
func (d *StaticDomain[A]) Factory() core.MultiAgentDomainFactory[A] {
	return func() (core.MultiAgentDomain[A], error) { return d, nil }
}

// AgentDomain is the single-agent domain produced by AgentDomainFactory.
type AgentDomain[A comparable] struct {
	Agent A
}

// AgentDomainFactory projects any multi-agent domain onto an *AgentDomain.
func AgentDomainFactory[A comparable](_ core.MultiAgentDomain[A], agent A) (core.SingleAgentDomain, error) {
	return &AgentDomain[A]{Agent: agent}, nil
}
