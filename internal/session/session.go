package session

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"chatgate/internal/catalog"
	"chatgate/internal/engine"
	"chatgate/internal/progress"
	"chatgate/internal/syncq"
	"chatgate/pkg/types"
)

// State represents the lifecycle state of a session.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Session owns one logical model slot. It serializes initialization, model
// switching and generation through a FIFO mutex so that at most one
// engine-touching operation is in flight, detects model switches, and
// applies the retry-with-reload policy to generation calls.
//
// Sessions are independent: two sessions share nothing, including the lock.
type Session struct {
	// mu serializes every operation that touches handle or loadedID.
	mu      syncq.Mutex
	backend engine.Backend
	cat     *catalog.Catalog
	log     zerolog.Logger
	bus     *Broadcaster
	rep     *progress.Reporter

	silent      bool
	maxAttempts int

	// handle is created once on first successful load and reused across
	// reloads; it is never destroyed and recreated. Mutated under mu only.
	handle engine.Handle

	// stateMu guards the observable snapshot: remembered/resident model ids,
	// default params, state and last error.
	stateMu  sync.RWMutex
	modelID  string // remembered id (constructor arg, then last target)
	loadedID string // model actually resident in handle
	defaults types.CompletionParams
	state    State
	lastErr  string

	loads   atomic.Uint64
	reloads atomic.Uint64
	gens    atomic.Uint64
	retries atomic.Uint64
	start   time.Time
}

// New constructs a session from cfg, applying defaults where unset.
func New(cfg Config) *Session {
	s := &Session{
		backend:     cfg.Backend,
		cat:         cfg.Catalog,
		log:         cfg.Logger.With().Str("component", "session").Logger(),
		bus:         NewBroadcaster(),
		silent:      cfg.Silent,
		maxAttempts: cfg.MaxAttempts,
		modelID:     cfg.ModelID,
		defaults:    cfg.DefaultParams,
		state:       StateIdle,
		start:       time.Now(),
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if cfg.Publisher != nil {
		s.bus.Subscribe(cfg.Publisher.Publish)
	}
	s.rep = progress.New(s.log, s.silent, func(frac float64, msg string) {
		if math.IsNaN(frac) {
			s.bus.Publish(Event{Name: EventProgressClear})
			return
		}
		s.bus.Publish(Event{Name: EventProgress, Fields: map[string]any{
			"fraction": frac,
			"message":  msg,
		}})
	})
	return s
}

// Subscribe registers a listener for session events (model_ready, progress,
// failures) and returns a func that removes it. Fire-and-forget; no replay
// for late subscribers.
func (s *Session) Subscribe(fn func(Event)) func() { return s.bus.Subscribe(fn) }

// EnsureReady guarantees the target model is resident: it lazily creates the
// engine handle, reloads it when the resident model differs, or does nothing
// when the target is already loaded. modelID may be empty, meaning the
// session's remembered id. Serialized behind any in-flight operation.
func (s *Session) EnsureReady(ctx context.Context, modelID string) error {
	target := modelID
	if target == "" {
		target = s.rememberedID()
	}
	if target == "" {
		return ErrConfiguration("model id required")
	}
	if s.cat != nil {
		if _, ok := s.cat.Get(target); !ok {
			return ErrModelUnknown(target)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(ctx, target)
}

// ensureLocked performs the load/reload/no-op decision. Caller holds mu.
func (s *Session) ensureLocked(ctx context.Context, target string) error {
	switch {
	case s.handle == nil:
		s.setState(StateLoading, "")
		s.log.Info().Str("model", target).Msg("creating engine")
		h, err := s.backend.Create(ctx, target, s.rep.Report)
		if err != nil {
			return s.loadFailed(target, initializationError{model: target, err: err})
		}
		s.handle = h
		s.loads.Add(1)
		loadsTotal.Inc()
	case s.residentID() != target:
		s.setState(StateLoading, "")
		s.log.Info().Str("from", s.residentID()).Str("to", target).Msg("switching model")
		if err := s.handle.Reload(ctx, target); err != nil {
			return s.loadFailed(target, reloadError{model: target, err: err})
		}
		s.reloads.Add(1)
		reloadsTotal.WithLabelValues("switch").Inc()
	default:
		// Already the correct model.
	}
	s.setLoaded(target)
	s.setState(StateReady, "")
	s.bus.Publish(Event{Name: EventModelReady, ModelID: target})
	s.log.Info().Str("model", target).Msg("model ready")
	return nil
}

// loadFailed records and surfaces an initialization/reload failure. The
// handle is left as the backend left it; loadedID is not rolled back.
func (s *Session) loadFailed(target string, err error) error {
	s.log.Error().Err(err).Str("model", target).Msg("load failed")
	failuresTotal.WithLabelValues("load").Inc()
	s.rep.Report(math.NaN(), "")
	if !s.silent {
		s.bus.Publish(Event{Name: EventLoadFailed, ModelID: target, Fields: map[string]any{
			"error": err.Error(),
		}})
	}
	s.setState(StateError, err.Error())
	return err
}

// LoadModel is the explicit load/switch entry point used by collaborators.
func (s *Session) LoadModel(ctx context.Context, modelID string) error {
	return s.EnsureReady(ctx, modelID)
}

// SetDefaultParams replaces the session-wide default completion parameters.
func (s *Session) SetDefaultParams(p types.CompletionParams) {
	s.stateMu.Lock()
	s.defaults = p
	s.stateMu.Unlock()
}

// DefaultParams returns the session-wide default completion parameters.
func (s *Session) DefaultParams() types.CompletionParams {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.defaults
}

// Models lists the catalog in ascending id order; empty without a catalog.
func (s *Session) Models() []types.ModelDescriptor {
	if s.cat == nil {
		return nil
	}
	return s.cat.List()
}

// CurrentModel returns the descriptor of the resident model, or nil before
// the first successful load. A load that is still in flight is not
// reflected until it completes.
func (s *Session) CurrentModel() *types.ModelDescriptor {
	id := s.residentID()
	if id == "" {
		return nil
	}
	if s.cat != nil {
		if d, ok := s.cat.Get(id); ok {
			return &d
		}
	}
	return &types.ModelDescriptor{ID: id}
}

// Ready reports whether a model is resident and the last operation succeeded.
func (s *Session) Ready() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state == StateReady && s.loadedID != ""
}

// Status builds a detailed status snapshot.
func (s *Session) Status() types.StatusResponse {
	s.stateMu.RLock()
	state := s.state
	loaded := s.loadedID
	lastErr := s.lastErr
	s.stateMu.RUnlock()
	now := time.Now()
	return types.StatusResponse{
		State:            string(state),
		LoadedModel:      loaded,
		LastError:        lastErr,
		Silent:           s.silent,
		LoadsTotal:       s.loads.Load(),
		ReloadsTotal:     s.reloads.Load(),
		GenerationsTotal: s.gens.Load(),
		RetriesTotal:     s.retries.Load(),
		UptimeSeconds:    int64(now.Sub(s.start).Seconds()),
		ServerTimeUnix:   now.Unix(),
	}
}

func (s *Session) rememberedID() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.loadedID != "" {
		return s.loadedID
	}
	return s.modelID
}

func (s *Session) residentID() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.loadedID
}

func (s *Session) setLoaded(id string) {
	s.stateMu.Lock()
	s.loadedID = id
	s.modelID = id
	s.stateMu.Unlock()
}

func (s *Session) setState(st State, errMsg string) {
	s.stateMu.Lock()
	s.state = st
	s.lastErr = errMsg
	s.stateMu.Unlock()
}
