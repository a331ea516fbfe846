// Package solver contains the lifecycle and domain binding plumbing shared by
// the concrete solvers in its subpackages:
//
//   - shortestpath: single-agent A* search on a roadmap agent view
//   - jointsearch: best-first multi-agent search guided by a core.Heuristic
//   - advisor: single-agent solver that asks a language model for advice
//
// Embed Base in a concrete solver and implement SolveFrom, NextAction and
// Utility to satisfy core.SingleAgentSolver.
package solver
