// Package session serializes all engine-touching work for one logical model
// slot and exposes the three chat generation modes. It is structured into
// small files by concern:
//
//   - session.go: core Session type, constructor, ensure/switch lifecycle,
//     snapshot getters (CurrentModel, Status, Ready).
//   - config.go: Config and package defaults.
//   - generate.go: the shared request path and the three generation modes.
//   - retry.go: retry-with-reload policy for generation attempts.
//   - stream.go: cumulative-text chat stream with an explicit Close contract.
//   - errors.go: error taxonomy and Is* helpers.
//   - events.go: event names, publisher contract and the broadcaster.
//   - metrics.go: prometheus counters.
//
// Concurrency model: one FIFO mutex (internal/syncq) guards the engine
// handle and the resident-model id. Initialization, model switching and
// generation all acquire it, so callers are served strictly in arrival
// order and can never observe a half-switched model. Generation re-acquires
// the lock after EnsureReady rather than holding it across both phases; the
// lock is not re-entrant.
//
// External packages should use public methods only (New, EnsureReady,
// LoadModel, GenerateText/JSON/Stream, SetDefaultParams, Models,
// CurrentModel, Status, Subscribe). Internal types are subject to change.
package session
