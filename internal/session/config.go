package session

import (
	"github.com/rs/zerolog"

	"chatgate/internal/catalog"
	"chatgate/internal/engine"
	"chatgate/pkg/types"
)

// defaultMaxAttempts allows one genuine reload-and-retry beyond the first
// generation attempt.
const defaultMaxAttempts = 2

// Config encapsulates all tunables for Session construction.
type Config struct {
	// Backend produces the engine handle. Required.
	Backend engine.Backend
	// Catalog validates model ids and backs CurrentModel/Models. Optional;
	// without it any id is passed through to the backend.
	Catalog *catalog.Catalog
	// ModelID is the initial remembered model id. May be empty; operations
	// then require an explicit id before first use.
	ModelID string
	// Silent suppresses user-facing notifications (events); logs are kept.
	Silent bool
	// MaxAttempts is the total number of generation attempts, counted from 1.
	// Zero applies the package default.
	MaxAttempts int
	// DefaultParams is the session-wide parameter set merged under per-call
	// overrides.
	DefaultParams types.CompletionParams
	// Logger for structured logs. Zero value logs to nothing useful; callers
	// normally pass a configured zerolog.Logger.
	Logger zerolog.Logger
	// Publisher, when set, is subscribed to the session's event stream.
	Publisher EventPublisher
}
