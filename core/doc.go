// Package core defines the contracts shared by the MAHD decomposition solver
// and its collaborators:
//
//   - Domains (multi-agent domains exposing a fixed agent set, opaque
//     single-agent domains produced per agent)
//   - Solvers (single-agent solvers queried per local observation, the
//     multi-agent solver whose search is guided by a heuristic)
//   - The dual Heuristic capability (per-agent cost estimate + per-agent
//     suggested action)
//   - Values, solutions, solver parameters, errors and warnings
//
// The package deliberately contains no algorithms. Search strategies, domain
// models and persistence live in their own packages so that the decomposition
// layer can be composed with any implementation of these interfaces.
package core
