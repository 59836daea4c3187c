package session

import (
	"context"
	"encoding/json"
	"strings"

	"chatgate/internal/engine"
	"chatgate/pkg/types"
)

// GenerateText runs a blocking completion and returns the first choice's
// message text, or "" when the backend returned no choices.
func (s *Session) GenerateText(ctx context.Context, messages []types.ChatMessage, override types.CompletionParams) (string, error) {
	comp, err := s.complete(ctx, messages, override, false)
	if err != nil {
		return "", err
	}
	generationsTotal.WithLabelValues("text").Inc()
	return comp.FirstText(), nil
}

// GenerateJSON runs a completion with constrained JSON output and returns
// the parsed value. Malformed model output is a soft failure: the result is
// nil with a nil error, never an error.
func (s *Session) GenerateJSON(ctx context.Context, messages []types.ChatMessage, override types.CompletionParams) (any, error) {
	comp, err := s.complete(ctx, messages, override, true)
	if err != nil {
		return nil, err
	}
	generationsTotal.WithLabelValues("json").Inc()
	text := strings.TrimSpace(comp.FirstText())
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		s.log.Debug().Str("output", text).Msg("model output is not valid JSON")
		return nil, nil
	}
	return v, nil
}

// GenerateStream starts a streamed completion. The returned stream yields
// cumulative-text chunks and must be drained or closed by the caller; the
// session lock is held until then.
func (s *Session) GenerateStream(ctx context.Context, messages []types.ChatMessage, override types.CompletionParams) (*ChatStream, error) {
	if err := s.EnsureReady(ctx, ""); err != nil {
		return nil, err
	}
	req := s.buildRequest(messages, override, false)
	s.mu.Lock()
	var src engine.Stream
	err := s.attemptLocked(ctx, func() error {
		st, e := s.handle.CompleteStream(ctx, req)
		if e != nil {
			return e
		}
		src = st
		return nil
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	generationsTotal.WithLabelValues("stream").Inc()
	s.gens.Add(1)
	return &ChatStream{
		src:     src,
		release: s.mu.Unlock,
		onError: s.streamFailed,
	}, nil
}

// complete is the single request path shared by the blocking modes:
// ensure-ready, merge params, build the request, then execute with retry.
func (s *Session) complete(ctx context.Context, messages []types.ChatMessage, override types.CompletionParams, jsonOutput bool) (engine.Completion, error) {
	if err := s.EnsureReady(ctx, ""); err != nil {
		return engine.Completion{}, err
	}
	req := s.buildRequest(messages, override, jsonOutput)
	s.mu.Lock()
	defer s.mu.Unlock()
	var comp engine.Completion
	err := s.attemptLocked(ctx, func() error {
		c, e := s.handle.Complete(ctx, req)
		if e != nil {
			return e
		}
		comp = c
		return nil
	})
	if err != nil {
		return engine.Completion{}, err
	}
	s.gens.Add(1)
	return comp, nil
}

func (s *Session) buildRequest(messages []types.ChatMessage, override types.CompletionParams, jsonOutput bool) engine.Request {
	return engine.Request{
		Messages:   messages,
		Params:     s.DefaultParams().Merge(override),
		JSONOutput: jsonOutput,
	}
}

// streamFailed records a mid-stream failure surfaced through Recv.
func (s *Session) streamFailed(err error) {
	s.log.Error().Err(err).Msg("stream failed mid-generation")
	failuresTotal.WithLabelValues("stream").Inc()
	if !s.silent {
		s.bus.Publish(Event{Name: EventGenerationFailed, ModelID: s.residentID(), Fields: map[string]any{
			"error": err.Error(),
		}})
	}
}
