//go:build llama

package engine

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"sync/atomic"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"

	"chatgate/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// LlamaConfig configures the in-process llama.cpp backend.
type LlamaConfig struct {
	CtxSize int
	Threads int
	// Resolve maps a model id to its weights path on disk.
	Resolve func(modelID string) (string, bool)
}

type llamaBackend struct {
	cfg LlamaConfig
	log zerolog.Logger
}

// NewLlamaBackend constructs the in-process backend. Requires the 'llama'
// build tag and a linkable libllama.
func NewLlamaBackend(cfg LlamaConfig, log zerolog.Logger) Backend {
	return &llamaBackend{cfg: cfg, log: log.With().Str("backend", "llama").Logger()}
}

// llamaHandle owns the loaded model. Reload swaps the weights while the
// handle itself stays alive.
type llamaHandle struct {
	backend *llamaBackend
	model   *llama.LLama
	modelID string
}

func (b *llamaBackend) load(modelID string, onProgress ProgressFunc) (*llama.LLama, error) {
	if b.cfg.Resolve == nil {
		return nil, errors.New("no model path resolver configured")
	}
	path, ok := b.cfg.Resolve(modelID)
	if !ok || strings.TrimSpace(path) == "" {
		return nil, errors.New("no weights path for model: " + modelID)
	}
	if onProgress != nil {
		onProgress(0, "loading "+modelID)
	}
	m, err := llama.New(path, llama.SetContext(max(1, b.cfg.CtxSize)))
	if err != nil {
		return nil, err
	}
	if onProgress != nil {
		onProgress(1, "ready")
		onProgress(math.NaN(), "")
	}
	return m, nil
}

func (b *llamaBackend) Create(ctx context.Context, modelID string, onProgress ProgressFunc) (Handle, error) {
	m, err := b.load(modelID, onProgress)
	if err != nil {
		return nil, err
	}
	return &llamaHandle{backend: b, model: m, modelID: modelID}, nil
}

func (h *llamaHandle) Reload(ctx context.Context, modelID string) error {
	// Load the replacement before freeing the resident weights so a failed
	// reload leaves the handle usable.
	m, err := h.backend.load(modelID, nil)
	if err != nil {
		return err
	}
	if h.model != nil {
		h.model.Free()
	}
	h.model = m
	h.modelID = modelID
	return nil
}

func (h *llamaHandle) Complete(ctx context.Context, req Request) (Completion, error) {
	if h.model == nil {
		return Completion{}, errors.New("llama model not initialized")
	}
	h.model.SetTokenCallback(func(string) bool { return ctx.Err() == nil })
	text, err := h.model.Predict(flattenChat(req), predictOptions(req.Params, h.backend.cfg.Threads)...)
	h.model.SetTokenCallback(nil)
	if err != nil {
		if ctx.Err() != nil {
			return Completion{}, ctx.Err()
		}
		return Completion{}, err
	}
	return Completion{Choices: []Choice{{
		Message:      types.ChatMessage{Role: types.RoleAssistant, Content: text},
		FinishReason: "stop",
	}}}, nil
}

func (h *llamaHandle) CompleteStream(ctx context.Context, req Request) (Stream, error) {
	if h.model == nil {
		return nil, errors.New("llama model not initialized")
	}
	st := &llamaStream{
		tokens: make(chan string, 16),
		result: make(chan error, 1),
	}
	prompt := flattenChat(req)
	po := predictOptions(req.Params, h.backend.cfg.Threads)
	go func() {
		h.model.SetTokenCallback(func(tok string) bool {
			if st.stopped.Load() || ctx.Err() != nil {
				return false
			}
			select {
			case st.tokens <- tok:
				return true
			case <-ctx.Done():
				return false
			}
		})
		_, err := h.model.Predict(prompt, po...)
		h.model.SetTokenCallback(nil)
		close(st.tokens)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		st.result <- err
	}()
	return st, nil
}

type llamaStream struct {
	tokens  chan string
	result  chan error
	stopped atomic.Bool
	final   error
	done    bool
}

func (s *llamaStream) Recv() (string, error) {
	if s.done {
		return "", s.final
	}
	tok, ok := <-s.tokens
	if ok {
		return tok, nil
	}
	s.done = true
	if err := <-s.result; err != nil && !s.stopped.Load() {
		s.final = err
	} else {
		s.final = io.EOF
	}
	return "", s.final
}

func (s *llamaStream) Close() error {
	s.stopped.Store(true)
	// Unblock the producer, then wait for Predict to wind down.
	for !s.done {
		if _, err := s.Recv(); err != nil {
			break
		}
	}
	return nil
}

// flattenChat renders ordered chat messages into a single prompt the way
// llama.cpp expects plain-text input, ending on an open assistant turn.
func flattenChat(req Request) string {
	var b strings.Builder
	for _, m := range req.Messages {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	if req.JSONOutput {
		b.WriteString("system: Respond with a single valid JSON object and nothing else.\n")
	}
	b.WriteString(types.RoleAssistant)
	b.WriteString(": ")
	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func zf(v *float32, def float32) float32 {
	if v != nil && *v > 0 {
		return *v
	}
	return def
}

// predictOptions converts merged params into go-llama.cpp options.
func predictOptions(p types.CompletionParams, threads int) []llama.PredictOption {
	maxTokens := 128
	if p.MaxTokens != nil && *p.MaxTokens > 0 {
		maxTokens = *p.MaxTokens
	}
	po := []llama.PredictOption{
		llama.SetTokens(maxTokens),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTemperature(zf(p.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(p.FrequencyPenalty, llama.DefaultOptions.Penalty)),
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
