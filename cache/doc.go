// Package cache provides the per-agent solution cache used by the solver
// pool. Entries are keyed by (agent, local observation) and compared with Go
// equality; once stored an entry is never replaced, evicted or invalidated
// by the in-memory implementation, so a cached solution is returned
// unchanged for the lifetime of the cache.
//
// Observation types must be comparable at run time. Interface-typed
// observations holding slices, maps or functions panic on lookup, exactly as
// they would as Go map keys.
package cache
