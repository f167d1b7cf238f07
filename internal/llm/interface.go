package llm

import (
	"context"

	"github.com/gemchat/gemchat-go/internal/chat"
)

// Chunk is one unit of a streamed response: optional incremental text and/or
// a full grounding-metadata snapshot. A nil Sources slice means the chunk
// carried no grounding metadata at all; a non-nil (possibly empty) slice is a
// complete replacement for any previously seen source set.
type Chunk struct {
	Text    string
	Sources []chat.GroundingSource
}

// Stream is a lazy, finite, non-restartable sequence of server-pushed chunks.
// Recv returns io.EOF when the provider ends the response; any other error
// aborts the exchange.
type Stream interface {
	Recv() (Chunk, error)
	Close() error
}

// Request is the provider-agnostic shape of one exchange: a system
// instruction and the ordered conversation contents (history plus the new
// turn, which is always last).
type Request struct {
	System   string
	Messages []chat.Message
}

// Client is the minimal subset of a provider client used by the streaming
// aggregator; it is easy to fake in tests.
type Client interface {
	StreamChat(ctx context.Context, req Request) (Stream, error)
}
