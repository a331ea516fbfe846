package roadmap

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/hupe1980/mahd/core"
	"github.com/hupe1980/mahd/solver/jointsearch"
)

// Domain is a roadmap problem. Observations are node ids and actions are the
// node id an agent moves to (its current node when waiting).
type Domain struct {
	graph    *simple.WeightedUndirectedGraph
	ids      map[string]int64
	names    []string
	agents   []string
	starts   map[string]int64
	goals    map[string]int64
	waitCost float64
}

var (
	_ core.MultiAgentDomain[string]            = (*Domain)(nil)
	_ jointsearch.Domain[string, int64, int64] = (*Domain)(nil)
	_ core.SingleAgentDomainFactory[string]    = SingleAgent
)

func (d *Domain) addNode(name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty node name", ErrInvalidScenario)
	}
	if id, ok := d.ids[name]; ok {
		return id, nil
	}
	id := int64(len(d.names))
	d.graph.AddNode(simple.Node(id))
	d.ids[name] = id
	d.names = append(d.names, name)
	return id, nil
}

// Agents implements core.MultiAgentDomain in scenario order.
func (d *Domain) Agents() []string {
	out := make([]string, len(d.agents))
	copy(out, d.agents)
	return out
}

// Graph returns the underlying roadmap.
func (d *Domain) Graph() graph.Weighted { return d.graph }

// NodeID returns the id of a named node.
func (d *Domain) NodeID(name string) (int64, bool) {
	id, ok := d.ids[name]
	return id, ok
}

// NodeName returns the name of a node id.
func (d *Domain) NodeName(id int64) string {
	if id < 0 || int(id) >= len(d.names) {
		return fmt.Sprintf("#%d", id)
	}
	return d.names[id]
}

// Goal returns the goal node of agent.
func (d *Domain) Goal(agent string) (int64, bool) {
	g, ok := d.goals[agent]
	return g, ok
}

// WaitCost returns the per-step cost of waiting off the goal.
func (d *Domain) WaitCost() float64 { return d.waitCost }

// Initial returns the joint start observation.
func (d *Domain) Initial() core.JointObservation[string, int64] {
	obs := make(core.JointObservation[string, int64], len(d.agents))
	for a, s := range d.starts {
		obs[a] = s
	}
	return obs
}

// IsGoal reports whether every agent is on its goal.
func (d *Domain) IsGoal(obs core.JointObservation[string, int64]) bool {
	for _, a := range d.agents {
		if obs[a] != d.goals[a] {
			return false
		}
	}
	return true
}

// moves returns the nodes agent may occupy next, waiting first.
func (d *Domain) moves(at int64) []int64 {
	out := []int64{at}
	nodes := d.graph.From(at)
	for nodes.Next() {
		out = append(out, nodes.Node().ID())
	}
	return out
}

// stepCost is the cost for one agent moving from one node to another.
func (d *Domain) stepCost(agent string, from, to int64) float64 {
	if from == to {
		if from == d.goals[agent] {
			return 0
		}
		return d.waitCost
	}
	w, _ := d.graph.Weight(from, to)
	return w
}

// Successors enumerates conflict-free joint transitions from obs.
func (d *Domain) Successors(obs core.JointObservation[string, int64]) []jointsearch.Successor[string, int64, int64] {
	options := make([][]int64, len(d.agents))
	for i, a := range d.agents {
		options[i] = d.moves(obs[a])
	}

	var out []jointsearch.Successor[string, int64, int64]
	choice := make([]int64, len(d.agents))

	var expand func(i int)
	expand = func(i int) {
		if i == len(d.agents) {
			if d.conflict(obs, choice) {
				return
			}
			next := make(core.JointObservation[string, int64], len(d.agents))
			actions := make(map[string]int64, len(d.agents))
			cost := 0.0
			for j, a := range d.agents {
				next[a] = choice[j]
				actions[a] = choice[j]
				cost += d.stepCost(a, obs[a], choice[j])
			}
			out = append(out, jointsearch.Successor[string, int64, int64]{Actions: actions, Next: next, Cost: cost})
			return
		}
		for _, to := range options[i] {
			choice[i] = to
			expand(i + 1)
		}
	}
	expand(0)

	return out
}

// conflict reports vertex and swap conflicts in a joint move.
func (d *Domain) conflict(obs core.JointObservation[string, int64], choice []int64) bool {
	for i := range d.agents {
		for j := i + 1; j < len(d.agents); j++ {
			if choice[i] == choice[j] {
				return true
			}
			fi, fj := obs[d.agents[i]], obs[d.agents[j]]
			if choice[i] == fj && choice[j] == fi {
				return true
			}
		}
	}
	return false
}

// AgentView is the single-agent projection of a Domain: the roadmap and one
// agent's goal, ignoring every other agent.
type AgentView struct {
	Agent    string
	Graph    graph.Weighted
	Goal     int64
	WaitCost float64

	names []string
}

// NodeName returns the name of a node id.
func (v *AgentView) NodeName(id int64) string {
	if id < 0 || int(id) >= len(v.names) {
		return fmt.Sprintf("#%d", id)
	}
	return v.names[id]
}

// Actions lists the nodes the agent may occupy next from at, waiting first.
func (v *AgentView) Actions(at int64) []int64 {
	if v.Graph.Node(at) == nil {
		return nil
	}
	out := []int64{at}
	nodes := v.Graph.From(at)
	for nodes.Next() {
		out = append(out, nodes.Node().ID())
	}
	return out
}

// Describe renders the agent's situation at node at for a language model.
func (v *AgentView) Describe(at int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Agent %s is at node %s (id %d) and must reach node %s (id %d).\n", v.Agent, v.NodeName(at), at, v.NodeName(v.Goal), v.Goal)
	fmt.Fprintf(&sb, "Waiting off the goal costs %g per step.\n", v.WaitCost)
	sb.WriteString("Roads from here:\n")
	moves := v.Actions(at)
	if len(moves) < 2 {
		sb.WriteString("- none\n")
		return sb.String()
	}
	for _, to := range moves[1:] {
		w, _ := v.Graph.Weight(at, to)
		fmt.Fprintf(&sb, "- to %s (id %d), cost %g\n", v.NodeName(to), to, w)
	}
	return sb.String()
}

// SingleAgent projects md, which must be a *Domain, onto agent.
func SingleAgent(md core.MultiAgentDomain[string], agent string) (core.SingleAgentDomain, error) {
	d, ok := md.(*Domain)
	if !ok {
		return nil, fmt.Errorf("%w: roadmap projection of %T", core.ErrInvalidConfig, md)
	}
	goal, ok := d.goals[agent]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownAgent, agent)
	}
	return &AgentView{Agent: agent, Graph: d.graph, Goal: goal, WaitCost: d.waitCost, names: d.names}, nil
}
