// Package engine executes compiled work: single deferred tasks, ensembles
// of independent tasks, and bounded while loops produced by the loop
// compiler.
//
// The engine is deliberately local and synchronous at its core. Steps
// inside one loop body run in declared order; concurrency exists only
// across independent ensemble members, which are dispatched to a small
// worker pool. The only blocking operation exposed to callers is
// Future.Result.
package engine
