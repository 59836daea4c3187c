//go:build !llama

package engine

// This file provides a no-CGO stub for the in-process llama backend. It is
// compiled when the 'llama' build tag is NOT set, keeping default builds and
// CI CGO-free. The real backend lives in llama.go (tagged 'llama').

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var llamaBuilt = false

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

// NewLlamaBackend returns a stub that refuses to create handles. This avoids
// any mocked behavior in binaries built without CGO support.
func NewLlamaBackend(cfg LlamaConfig, log zerolog.Logger) Backend {
	return &llamaBackend{cfg: cfg, log: log}
}

func (b *llamaBackend) Create(ctx context.Context, modelID string, onProgress ProgressFunc) (Handle, error) {
	return nil, errors.New("llama support not built (missing 'llama' build tag)")
}
