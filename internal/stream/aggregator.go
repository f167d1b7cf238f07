// Package stream drives one request/response exchange against the model
// provider and aggregates its incremental chunks into progressive snapshots.
// It never touches the session store; reconciliation is the caller's job.
package stream

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gemchat/gemchat-go/internal/chat"
	"github.com/gemchat/gemchat-go/internal/llm"
	"github.com/gemchat/gemchat-go/internal/logger"
)

// StreamError wraps any transport or provider failure that aborted an
// exchange. There is no partial success and no automatic retry; recovery
// policy belongs to the caller.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return "stream aborted: " + e.Err.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Final is the terminal result of a successful exchange. Text may be empty
// and Sources may be nil.
type Final struct {
	Text    string
	Sources []chat.GroundingSource
}

// ProgressFunc receives one progressive snapshot per changed chunk: the
// monotonic cumulative text so far, and the last grounding snapshot when one
// has been seen (nil otherwise).
type ProgressFunc func(cumulativeText string, sources []chat.GroundingSource)

// Aggregator runs exchanges against a provider client with a fixed system
// instruction.
type Aggregator struct {
	client llm.Client
	system string
}

// New creates an aggregator.
func New(client llm.Client, systemPrompt string) *Aggregator {
	return &Aggregator{client: client, system: systemPrompt}
}

// Run opens one exchange carrying history followed by newTurn, consumes the
// inbound chunk sequence and returns the final cumulative text and source
// list. onProgress is invoked synchronously, in chunk arrival order, after
// every chunk that changed the text and/or the source set.
//
// Chunk text concatenates append-only into the cumulative buffer. A chunk
// carrying grounding metadata replaces the current source set wholesale
// (entries without a resolvable URI are dropped); a chunk without grounding
// metadata leaves the previous set in place.
func (a *Aggregator) Run(ctx context.Context, history []chat.Message, newTurn chat.Message, onProgress ProgressFunc) (Final, error) {
	contents := make([]chat.Message, 0, len(history)+1)
	contents = append(contents, history...)
	contents = append(contents, newTurn)

	s, err := a.client.StreamChat(ctx, llm.Request{System: a.system, Messages: contents})
	if err != nil {
		logger.L.Error("failed to open model stream", "error", err)
		return Final{}, &StreamError{Err: err}
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			logger.L.Warn("stream close error", "error", cerr)
		}
	}()

	var buf strings.Builder
	var sources []chat.GroundingSource

	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.L.Error("stream receive failed", "error", err)
			return Final{}, &StreamError{Err: err}
		}

		changed := false
		if chunk.Text != "" {
			buf.WriteString(chunk.Text)
			changed = true
		}
		if chunk.Sources != nil {
			sources = filterWebSources(chunk.Sources)
			changed = true
		}
		if changed && onProgress != nil {
			if len(sources) > 0 {
				onProgress(buf.String(), sources)
			} else {
				onProgress(buf.String(), nil)
			}
		}
	}

	return Final{Text: buf.String(), Sources: sources}, nil
}

// filterWebSources keeps received order and drops entries lacking a
// resolvable URI.
func filterWebSources(in []chat.GroundingSource) []chat.GroundingSource {
	out := make([]chat.GroundingSource, 0, len(in))
	for _, src := range in {
		if src.URI == "" {
			continue
		}
		out = append(out, src)
	}
	return out
}
