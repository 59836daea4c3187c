package types

import "encoding/json"

// ChatRequest is the payload for the chat endpoints. The request always
// targets the session's current model; use POST /models/load to switch.
type ChatRequest struct {
	// Ordered prompt messages.
	Messages []ChatMessage `json:"messages"`
	// Optional per-call parameter overrides, merged over the session defaults.
	Params *CompletionParams `json:"params,omitempty"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	// Generated text of the first choice; empty when the backend returned none.
	// example: The ocean breathes in waves.
	Text string `json:"text" example:"The ocean breathes in waves."`
}

// ChatJSONResponse is returned by POST /chat/json. Result is the parsed JSON
// value produced by the model, or null when the output was not valid JSON.
type ChatJSONResponse struct {
	Result json.RawMessage `json:"result"`
}

// LoadModelRequest selects the model for POST /models/load.
type LoadModelRequest struct {
	// Model id to load; empty means the session's remembered model.
	// example: tinyllama-q4
	Model string `json:"model,omitempty" example:"tinyllama-q4"`
}

// ModelsResponse wraps the catalog listing returned by GET /models.
type ModelsResponse struct {
	Models []ModelDescriptor `json:"models"`
}

// CurrentModelResponse is returned by GET /models/current. Model is null
// until a model has been loaded.
type CurrentModelResponse struct {
	Model *ModelDescriptor `json:"model"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Session state: idle, loading, ready or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// Currently resident model id, empty before the first load.
	// example: tinyllama-q4
	LoadedModel string `json:"loaded_model,omitempty" example:"tinyllama-q4"`
	// Last error observed by the session, if any.
	LastError string `json:"last_error,omitempty"`
	// Whether user-facing notifications are suppressed.
	Silent bool `json:"silent"`
	// Total successful model loads.
	// example: 1
	LoadsTotal uint64 `json:"loads_total" example:"1"`
	// Total reloads (model switches plus retry recoveries).
	// example: 2
	ReloadsTotal uint64 `json:"reloads_total" example:"2"`
	// Total completed generation calls.
	// example: 40
	GenerationsTotal uint64 `json:"generations_total" example:"40"`
	// Total retried generation attempts.
	// example: 3
	RetriesTotal uint64 `json:"retries_total" example:"3"`
	// Uptime of the session in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
