package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatgate/internal/engine"
	"chatgate/pkg/types"
)

// fakeBackend is a lightweight in-memory backend used for tests.
type fakeBackend struct {
	mu          sync.Mutex
	createErr   error
	createCalls int
	handle      *fakeHandle
}

func (b *fakeBackend) Create(ctx context.Context, modelID string, onProgress engine.ProgressFunc) (engine.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createCalls++
	if b.createErr != nil {
		return nil, b.createErr
	}
	if onProgress != nil {
		onProgress(0, "loading "+modelID)
		onProgress(1, "ready")
	}
	if b.handle == nil {
		b.handle = &fakeHandle{}
	}
	b.handle.modelID = modelID
	return b.handle, nil
}

func (b *fakeBackend) creates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createCalls
}

// fakeHandle records calls and asserts that backend calls never interleave.
type fakeHandle struct {
	mu          sync.Mutex
	modelID     string
	reloadErr   error
	reloadCalls int

	completeErrs  []error // consumed one per call; nil entry means success
	completeText  string
	completeDelay time.Duration
	completeCalls int

	streamFrags []string
	streamErr   error // returned after the fragments instead of EOF
	streamErrAt int   // when >0, fail after this many fragments

	lastReq     engine.Request
	inflight    int
	interleaved bool
}

func (h *fakeHandle) last() engine.Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastReq
}

func (h *fakeHandle) reloads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloadCalls
}

func (h *fakeHandle) enter() {
	h.mu.Lock()
	h.inflight++
	if h.inflight > 1 {
		h.interleaved = true
	}
	h.mu.Unlock()
}

func (h *fakeHandle) exit() {
	h.mu.Lock()
	h.inflight--
	h.mu.Unlock()
}

func (h *fakeHandle) Reload(ctx context.Context, modelID string) error {
	h.enter()
	defer h.exit()
	h.mu.Lock()
	h.reloadCalls++
	err := h.reloadErr
	if err == nil {
		h.modelID = modelID
	}
	h.mu.Unlock()
	return err
}

func (h *fakeHandle) Complete(ctx context.Context, req engine.Request) (engine.Completion, error) {
	h.enter()
	defer h.exit()
	if h.completeDelay > 0 {
		time.Sleep(h.completeDelay)
	}
	h.mu.Lock()
	h.completeCalls++
	h.lastReq = req
	var err error
	if len(h.completeErrs) > 0 {
		err = h.completeErrs[0]
		h.completeErrs = h.completeErrs[1:]
	}
	text := h.completeText
	h.mu.Unlock()
	if err != nil {
		return engine.Completion{}, err
	}
	if text == "" {
		return engine.Completion{}, nil
	}
	return engine.Completion{Choices: []engine.Choice{{
		Message: types.ChatMessage{Role: types.RoleAssistant, Content: text},
	}}}, nil
}

func (h *fakeHandle) CompleteStream(ctx context.Context, req engine.Request) (engine.Stream, error) {
	h.enter()
	h.mu.Lock()
	h.lastReq = req
	frags := append([]string(nil), h.streamFrags...)
	errAt := h.streamErrAt
	serr := h.streamErr
	h.mu.Unlock()
	return &fakeStream{h: h, frags: frags, errAt: errAt, err: serr}, nil
}

// fakeStream yields the configured fragments; the handle's inflight slot is
// held until Close, mirroring a backend whose stream pins the engine.
type fakeStream struct {
	h      *fakeHandle
	frags  []string
	pos    int
	errAt  int
	err    error
	closed bool
}

func (s *fakeStream) Recv() (string, error) {
	if s.errAt > 0 && s.pos >= s.errAt {
		return "", s.err
	}
	if s.pos >= len(s.frags) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	frag := s.frags[s.pos]
	s.pos++
	return frag, nil
}

func (s *fakeStream) Close() error {
	if !s.closed {
		s.closed = true
		s.h.exit()
	}
	return nil
}

func newTestSession(b engine.Backend, opts ...func(*Config)) *Session {
	cfg := Config{
		Backend: b,
		ModelID: "m1",
		Logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return New(cfg)
}
