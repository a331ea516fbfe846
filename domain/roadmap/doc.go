// Package roadmap is a multi-agent navigation domain on a weighted undirected
// graph. Every agent starts on a node and must reach its goal node; in each
// joint step an agent either waits or moves along one edge. Two agents may
// neither occupy the same node nor swap nodes in the same step.
//
// Scenarios are loaded from YAML:
//
//	wait_cost: 1
//	edges:
//	  - {from: a, to: b, weight: 1}
//	  - {from: b, to: c, weight: 2}
//	agents:
//	  - {name: r1, start: a, goal: c}
package roadmap
