// Package turn orchestrates one user submission end to end: append the turn,
// stream the model reply into the placeholder, finalize. It is the promoted
// equivalent of the UI submit handler, so correctness does not depend on a
// presentation layer.
package turn

import (
	"context"
	"errors"

	"github.com/gemchat/gemchat-go/internal/chat"
	"github.com/gemchat/gemchat-go/internal/config"
	"github.com/gemchat/gemchat-go/internal/reconcile"
	"github.com/gemchat/gemchat-go/internal/store"
	"github.com/gemchat/gemchat-go/internal/stream"
)

// ErrEmptyTurn rejects a submission with no text and no media before any
// message is created.
var ErrEmptyTurn = errors.New("turn: empty input")

// Runner wires the reconciler and aggregator together for a session store.
type Runner struct {
	store *store.Store
	rec   *reconcile.Reconciler
	agg   *stream.Aggregator
	cfg   config.ChatConfig
}

// NewRunner creates a turn runner.
func NewRunner(st *store.Store, rec *reconcile.Reconciler, agg *stream.Aggregator, cfg config.ChatConfig) *Runner {
	return &Runner{store: st, rec: rec, agg: agg, cfg: cfg}
}

// NewChat creates a fresh session seeded with the model greeting and adds it
// to the front of the collection.
func (r *Runner) NewChat() chat.Session {
	sess := chat.NewSession(r.cfg.NewChatTitle).WithMessage(chat.NewModelMessage(r.cfg.Greeting))
	r.store.Add(sess)
	return sess
}

// DeleteChat removes a session. An exchange already in flight for it keeps
// running to completion; its reconciliation calls become no-ops.
func (r *Runner) DeleteChat(id string) {
	r.store.Delete(id)
}

// Send runs one full turn against the session: begin, stream with progress
// reconciliation, finalize. It blocks until the exchange terminates and
// returns the final model message. On stream failure the placeholder is
// finalized to the configured error text and the underlying *stream.StreamError
// is returned.
//
// The exchange keeps targeting its original session and placeholder ids for
// its entire lifetime, regardless of what the caller does with the collection
// in the meantime.
func (r *Runner) Send(ctx context.Context, sessionID string, parts []chat.Part) (chat.Message, error) {
	userMsg := chat.NewUserMessage(parts)
	if !userMsg.HasContent() {
		return chat.Message{}, ErrEmptyTurn
	}

	sess, ok := r.store.SessionByID(sessionID)
	if !ok {
		return chat.Message{}, reconcile.ErrUnknownSession
	}
	// History excludes the new turn; it is captured before BeginTurn appends.
	history := sess.Messages

	placeholder, err := r.rec.BeginTurn(sessionID, userMsg)
	if err != nil {
		return chat.Message{}, err
	}

	final, err := r.agg.Run(ctx, history, userMsg, func(cumulativeText string, sources []chat.GroundingSource) {
		r.rec.ApplyProgress(sessionID, placeholder.ID, cumulativeText, sources)
	})
	if err != nil {
		r.rec.FinalizeError(sessionID, placeholder.ID, r.cfg.ErrorText)
		return chat.Message{}, err
	}

	r.rec.FinalizeSuccess(sessionID, placeholder.ID, final.Text, final.Sources)

	reply := placeholder
	reply.Parts = []chat.Part{chat.TextPart(final.Text)}
	reply.Sources = final.Sources
	reply.Status = chat.StatusSent
	return reply, nil
}
