package session

import (
	"errors"
	"io"
	"strings"

	"chatgate/internal/engine"
	"chatgate/pkg/types"
)

// ChatStream is a lazy, single-pass, non-restartable chat completion stream.
// Each Recv returns a chunk whose Text is the full text accumulated so far.
// The stream ends with io.EOF, or with the backend failure when generation
// breaks mid-stream; chunks delivered before a failure stay delivered.
//
// Consumers that stop early must call Close to release the backend stream
// and the session lock. Close after exhaustion is a no-op.
type ChatStream struct {
	src     engine.Stream
	release func()
	onError func(error)

	acc  strings.Builder
	err  error
	done bool
}

// Recv returns the next cumulative chunk. After the stream has terminated it
// keeps returning the terminal error (io.EOF on normal completion).
func (cs *ChatStream) Recv() (types.StreamChunk, error) {
	if cs.done {
		return types.StreamChunk{}, cs.err
	}
	frag, err := cs.src.Recv()
	if err != nil {
		cs.finish(err)
		return types.StreamChunk{}, err
	}
	cs.acc.WriteString(frag)
	return types.StreamChunk{
		Text:     cs.acc.String(),
		Swipes:   []string{},
		Logprobs: nil,
	}, nil
}

// Text returns the full text accumulated so far.
func (cs *ChatStream) Text() string { return cs.acc.String() }

// Close terminates the stream early. Safe to call multiple times.
func (cs *ChatStream) Close() error {
	if cs.done {
		return nil
	}
	cs.finish(io.EOF)
	return nil
}

func (cs *ChatStream) finish(err error) {
	cs.done = true
	cs.err = err
	_ = cs.src.Close()
	if !errors.Is(err, io.EOF) && cs.onError != nil {
		cs.onError(err)
	}
	if cs.release != nil {
		cs.release()
		cs.release = nil
	}
}
