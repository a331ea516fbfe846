package roadmap

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/graph/simple"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario is returned for scenarios that cannot be built.
var ErrInvalidScenario = errors.New("invalid scenario")

// DefaultWaitCost is charged per step for every agent waiting off its goal.
const DefaultWaitCost = 1.0

// Edge is an undirected weighted edge between two named nodes.
type Edge struct {
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Weight float64 `yaml:"weight"`
}

// AgentSpec places an agent.
type AgentSpec struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	Goal  string `yaml:"goal"`
}

// Scenario is the serialized form of a roadmap problem.
type Scenario struct {
	// Nodes lists isolated or explicitly ordered nodes. Nodes referenced by
	// edges are added automatically.
	Nodes    []string    `yaml:"nodes"`
	Edges    []Edge      `yaml:"edges"`
	Agents   []AgentSpec `yaml:"agents"`
	WaitCost *float64    `yaml:"wait_cost"`
}

// LoadScenario decodes a YAML scenario.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &s, nil
}

// LoadScenarioFile decodes the YAML scenario stored at path.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadScenario(f)
}

// Build validates the scenario and builds its domain.
func (s *Scenario) Build() (*Domain, error) {
	d := &Domain{
		graph:    simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		ids:      map[string]int64{},
		waitCost: DefaultWaitCost,
		starts:   map[string]int64{},
		goals:    map[string]int64{},
	}
	if s.WaitCost != nil {
		if *s.WaitCost < 0 {
			return nil, fmt.Errorf("%w: negative wait cost %g", ErrInvalidScenario, *s.WaitCost)
		}
		d.waitCost = *s.WaitCost
	}

	for _, n := range s.Nodes {
		if _, err := d.addNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range s.Edges {
		if e.From == e.To {
			return nil, fmt.Errorf("%w: self loop on %q", ErrInvalidScenario, e.From)
		}
		if e.Weight <= 0 {
			return nil, fmt.Errorf("%w: edge %s-%s has non-positive weight %g", ErrInvalidScenario, e.From, e.To, e.Weight)
		}
		from, err := d.addNode(e.From)
		if err != nil {
			return nil, err
		}
		to, err := d.addNode(e.To)
		if err != nil {
			return nil, err
		}
		if d.graph.HasEdgeBetween(from, to) {
			return nil, fmt.Errorf("%w: duplicate edge %s-%s", ErrInvalidScenario, e.From, e.To)
		}
		d.graph.SetWeightedEdge(d.graph.NewWeightedEdge(simple.Node(from), simple.Node(to), e.Weight))
	}

	if len(s.Agents) == 0 {
		return nil, fmt.Errorf("%w: no agents", ErrInvalidScenario)
	}
	occupied := map[int64]string{}
	for _, a := range s.Agents {
		if a.Name == "" {
			return nil, fmt.Errorf("%w: agent without name", ErrInvalidScenario)
		}
		if _, dup := d.starts[a.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate agent %q", ErrInvalidScenario, a.Name)
		}
		start, ok := d.ids[a.Start]
		if !ok {
			return nil, fmt.Errorf("%w: agent %q starts on unknown node %q", ErrInvalidScenario, a.Name, a.Start)
		}
		goal, ok := d.ids[a.Goal]
		if !ok {
			return nil, fmt.Errorf("%w: agent %q has unknown goal %q", ErrInvalidScenario, a.Name, a.Goal)
		}
		if other, taken := occupied[start]; taken {
			return nil, fmt.Errorf("%w: agents %q and %q share start %q", ErrInvalidScenario, other, a.Name, a.Start)
		}
		occupied[start] = a.Name
		d.agents = append(d.agents, a.Name)
		d.starts[a.Name] = start
		d.goals[a.Name] = goal
	}

	return d, nil
}
