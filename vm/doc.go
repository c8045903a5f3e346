// Package vm implements the boardsim execution engine.
//
// This package contains:
//   - Reference-counted heap objects (records, closures, collections, maps, local cells)
//   - Storage accessors that keep reference counts balanced
//   - A trampolined continuation interpreter with single-use resumes
//   - A cooperative fiber scheduler with event queues, an event bus and an animation queue
//   - A small library of 32-bit integer primitives
//
// Everything runs on one logical thread supplied by a host.Scheduler.
package vm
