// Package engine abstracts the inference backend behind a small contract:
// create a handle bound to one model, reload weights in place, and run chat
// completions (blocking or streamed). Concrete implementations talk to an
// OpenAI-compatible local server or run llama.cpp in-process.
package engine

import (
	"context"

	"chatgate/pkg/types"
)

// ProgressFunc receives load/reload progress. fraction is in [0,1]; NaN
// means "clear the indicator". message is optional human-readable text.
type ProgressFunc func(fraction float64, message string)

// Backend creates engine handles. A handle is created once per session and
// reused across model switches via Reload.
type Backend interface {
	Create(ctx context.Context, modelID string, onProgress ProgressFunc) (Handle, error)
}

// Handle is one resident engine instance bound to a loaded model.
type Handle interface {
	// Reload swaps the active model weights without reconstructing the handle.
	Reload(ctx context.Context, modelID string) error
	// Complete runs one blocking chat completion.
	Complete(ctx context.Context, req Request) (Completion, error)
	// CompleteStream starts a streamed chat completion. The returned Stream
	// must be drained or closed by the caller.
	CompleteStream(ctx context.Context, req Request) (Stream, error)
}

// Request is a fully merged completion request.
type Request struct {
	Messages []types.ChatMessage
	Params   types.CompletionParams
	// JSONOutput asks the backend for constrained JSON output.
	JSONOutput bool
}

// Completion is a blocking completion result.
type Completion struct {
	Choices []Choice
}

// Choice is one completion alternative.
type Choice struct {
	Message      types.ChatMessage
	FinishReason string
}

// FirstText returns the first choice's message text, or "" when the backend
// returned no choices.
func (c Completion) FirstText() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Message.Content
}

// Stream yields content fragments of a streamed completion. Recv returns
// io.EOF when the backend's chunk sequence ends, or the mid-stream failure.
type Stream interface {
	Recv() (string, error)
	Close() error
}
