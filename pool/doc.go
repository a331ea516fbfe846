// Package pool owns one single-agent solver per agent and memoizes the
// (utility, next action) pair each solver produces per local observation.
//
// Construction is eager: every agent gets a freshly configured solver that is
// bound to its own domain producer before New returns. Solving is lazy: a
// per-agent solve-from runs only the first time an (agent, observation) pair
// is requested. Concurrent requests for the same pair share one solve, and
// calls into a given agent's solver are serialized.
package pool
