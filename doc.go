// Package rewind implements a bounded undo/redo history for any value type,
// with optional best-effort persistence to a key-value Storage. A Controller
// owns a single linear timeline of past, present, and future values and
// mediates every transition on it.
//
// Typical usage looks like:
//   - Create a Controller with an initial value and a Config
//   - Optionally attach a Storage so state survives restarts
//   - Call Set on every edit, and Commit (or Mark) at edit boundaries
//   - Call Undo and Redo to move through the timeline
//   - Subscribe to be told about every transition
//
// Persistence never affects in-memory correctness. Malformed stored data,
// failed reads, and failed writes all degrade to behaving as if no storage
// were configured.
//
// The examples/ directory holds a counter with bounded history and a draft
// form persisted to Redis, and cmd/rewind is a small CLI that edits a
// persisted document through any of the storage backends.
package rewind
