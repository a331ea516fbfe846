// Package heuristic turns per-agent single-agent solutions into the dual
// heuristic consumed by a multi-agent solver: a cost estimate and a suggested
// action for every agent of a joint observation.
package heuristic
