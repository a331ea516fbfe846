// Package jointsearch implements a best-first multi-agent solver over joint
// observations. Nodes are ordered by f = g + h where h is the total cost of
// the configured core.Heuristic; on equal f, successors whose joint action
// agrees with the heuristic's suggested actions are expanded first.
package jointsearch
