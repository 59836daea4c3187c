package engine

import (
	"context"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"chatgate/pkg/types"
)

// OpenAIConfig configures the OpenAI-compatible backend (llama-server,
// LM Studio, Ollama and friends).
type OpenAIConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
}

// openAIBackend implements Backend over an OpenAI-compatible HTTP server.
// Model switching is conveyed by the model field of each request; Reload
// re-points the handle and warms the new model.
type openAIBackend struct {
	client     *openai.Client
	reqTimeout time.Duration
	log        zerolog.Logger
}

// NewOpenAIBackend constructs a server-backed engine.
func NewOpenAIBackend(cfg OpenAIConfig, log zerolog.Logger) Backend {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	// Timeout=0: deadlines are applied per request via context so that
	// long streamed generations are not cut off mid-flight.
	cc.HTTPClient = &http.Client{Transport: tr, Timeout: 0}
	return &openAIBackend{
		client:     openai.NewClientWithConfig(cc),
		reqTimeout: cfg.RequestTimeout,
		log:        log.With().Str("backend", "openai").Logger(),
	}
}

type openAIHandle struct {
	backend *openAIBackend
	modelID string
}

func (b *openAIBackend) Create(ctx context.Context, modelID string, onProgress ProgressFunc) (Handle, error) {
	h := &openAIHandle{backend: b, modelID: modelID}
	if err := h.warm(ctx, onProgress); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *openAIHandle) Reload(ctx context.Context, modelID string) error {
	prev := h.modelID
	h.modelID = modelID
	if err := h.warm(ctx, nil); err != nil {
		h.modelID = prev
		return err
	}
	return nil
}

// warm verifies the model is served and forces the server to page it in by
// issuing a one-token completion. Servers without /v1/models are tolerated.
func (h *openAIHandle) warm(ctx context.Context, onProgress ProgressFunc) error {
	report := func(frac float64, msg string) {
		if onProgress != nil {
			onProgress(frac, msg)
		}
	}
	report(0, "connecting to engine")
	if list, err := h.backend.client.ListModels(ctx); err != nil {
		h.backend.log.Warn().Err(err).Msg("model listing unavailable, skipping check")
	} else {
		found := false
		for _, m := range list.Models {
			if m.ID == h.modelID {
				found = true
				break
			}
		}
		if !found {
			return errors.New("model not served: " + h.modelID)
		}
	}
	report(0.5, "warming up "+h.modelID)
	warmReq := openai.ChatCompletionRequest{
		Model:     h.modelID,
		MaxTokens: 1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "ping"},
		},
	}
	if h.backend.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.backend.reqTimeout)
		defer cancel()
	}
	if _, err := h.backend.client.CreateChatCompletion(ctx, warmReq); err != nil {
		return err
	}
	report(1, "ready")
	report(math.NaN(), "")
	return nil
}

func (h *openAIHandle) buildRequest(req Request, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:  h.modelID,
		Stream: stream,
	}
	out.Messages = make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	p := req.Params
	if p.MaxTokens != nil {
		out.MaxTokens = *p.MaxTokens
	}
	if p.Temperature != nil {
		out.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		out.TopP = *p.TopP
	}
	if p.FrequencyPenalty != nil {
		out.FrequencyPenalty = *p.FrequencyPenalty
	}
	if p.PresencePenalty != nil {
		out.PresencePenalty = *p.PresencePenalty
	}
	if len(p.Stop) > 0 {
		out.Stop = p.Stop
	}
	if req.JSONOutput {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return out
}

func (h *openAIHandle) Complete(ctx context.Context, req Request) (Completion, error) {
	if h.backend.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.backend.reqTimeout)
		defer cancel()
	}
	resp, err := h.backend.client.CreateChatCompletion(ctx, h.buildRequest(req, false))
	if err != nil {
		return Completion{}, err
	}
	out := Completion{Choices: make([]Choice, 0, len(resp.Choices))}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, Choice{
			Message:      types.ChatMessage{Role: c.Message.Role, Content: c.Message.Content},
			FinishReason: string(c.FinishReason),
		})
	}
	return out, nil
}

func (h *openAIHandle) CompleteStream(ctx context.Context, req Request) (Stream, error) {
	st, err := h.backend.client.CreateChatCompletionStream(ctx, h.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	return &openAIStream{src: st}, nil
}

type openAIStream struct {
	src *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.src.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if frag := resp.Choices[0].Delta.Content; frag != "" {
			return frag, nil
		}
		// Empty delta (role prelude or keepalive); keep reading.
	}
}

func (s *openAIStream) Close() error { return s.src.Close() }
