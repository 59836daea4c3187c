package types

import "encoding/json"

// ModelDescriptor describes a model available to the gate. Descriptors are
// immutable; identity is the ID.
type ModelDescriptor struct {
	// Stable identifier for the model.
	// example: tinyllama-q4
	ID string `json:"id" yaml:"id" toml:"id" example:"tinyllama-q4"`
	// Estimated VRAM required to load the model, in MB.
	// example: 1200
	VRAMRequiredMB int `json:"vram_required_mb" yaml:"vram_required_mb" toml:"vram_required_mb" example:"1200"`
	// Context window size in tokens.
	// example: 8192
	ContextWindow int `json:"context_window" yaml:"context_window" toml:"context_window" example:"8192"`
	// Optional absolute path to the weights on disk (in-process backends only).
	// example: /home/user/models/TinyLlama.Q4_K_M.gguf
	Path string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty" example:"/home/user/models/TinyLlama.Q4_K_M.gguf"`
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a prompt. The ordered slice of messages is
// caller-owned; the gate never mutates it.
type ChatMessage struct {
	// Role of the author: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}

// CompletionParams carries optional sampling parameters. Nil fields mean
// "unset" and fall through to the session default, then to backend defaults.
type CompletionParams struct {
	// Maximum number of new tokens to generate.
	// example: 128
	MaxTokens *int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP *float32 `json:"top_p,omitempty" yaml:"top_p,omitempty" toml:"top_p,omitempty"`
	// Penalty on tokens by their frequency in the output so far.
	// example: 0.5
	FrequencyPenalty *float32 `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty" toml:"frequency_penalty,omitempty"`
	// Penalty on tokens already present in the output.
	// example: 0.5
	PresencePenalty *float32 `json:"presence_penalty,omitempty" yaml:"presence_penalty,omitempty" toml:"presence_penalty,omitempty"`
	// Stop sequences; generation ends when one is produced.
	// example: ["\n\n"]
	Stop []string `json:"stop,omitempty" yaml:"stop,omitempty" toml:"stop,omitempty"`
}

// Merge combines p (the default) with an override, field by field. Set
// override fields win; nil override fields fall back to the default.
func (p CompletionParams) Merge(override CompletionParams) CompletionParams {
	out := p
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.FrequencyPenalty != nil {
		out.FrequencyPenalty = override.FrequencyPenalty
	}
	if override.PresencePenalty != nil {
		out.PresencePenalty = override.PresencePenalty
	}
	if override.Stop != nil {
		out.Stop = override.Stop
	}
	return out
}

// StreamChunk is one record of a chat stream. Text is cumulative: every
// chunk carries the full text generated so far, not just the new fragment.
type StreamChunk struct {
	// Full accumulated text up to this chunk.
	// example: Hello, world
	Text string `json:"text" example:"Hello, world"`
	// Alternative completions; always empty.
	Swipes []string `json:"swipes"`
	// Token log probabilities; always null.
	Logprobs json.RawMessage `json:"logprobs"`
}
