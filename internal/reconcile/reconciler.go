// Package reconcile applies streaming progress and terminal outcomes back
// into the session store by message identity. Every operation maps the
// collection, replaces the matching element and leaves all others untouched,
// so an exchange running in the background can never corrupt another
// session's state.
package reconcile

import (
	"errors"
	"sync"

	"github.com/qmuntal/stateless"

	"github.com/gemchat/gemchat-go/internal/chat"
	"github.com/gemchat/gemchat-go/internal/logger"
	"github.com/gemchat/gemchat-go/internal/store"
)

// Turn lifecycle states.
type TurnState stateless.State

var (
	StateSending TurnState = "Sending"
	StateSent    TurnState = "Sent"    // Terminal: successful completion
	StateErrored TurnState = "Errored" // Terminal: stream failure
)

// Turn lifecycle triggers.
type TurnTrigger stateless.Trigger

var (
	TriggerProgress  TurnTrigger = "Progress"
	TriggerSucceeded TurnTrigger = "Succeeded"
	TriggerFailed    TurnTrigger = "Failed"
)

var (
	// ErrUnknownSession is returned by BeginTurn for a session id not in the store.
	ErrUnknownSession = errors.New("reconcile: unknown session")
	// ErrTurnInFlight is returned by BeginTurn while the session still has an
	// unterminated placeholder. One in-flight turn per session.
	ErrTurnInFlight = errors.New("reconcile: session already has a turn in flight")
)

// newTurnFSM builds the per-placeholder lifecycle machine:
// Sending --Progress--> Sending (reentry), --Succeeded--> Sent, --Failed--> Errored.
// Sent and Errored are terminal; they permit nothing.
func newTurnFSM() *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateSending)
	fsm.Configure(StateSending).
		PermitReentry(TriggerProgress).
		Permit(TriggerSucceeded, StateSent).
		Permit(TriggerFailed, StateErrored)
	return fsm
}

// Reconciler owns the in-flight turn machines and performs all session-store
// mutations for a turn's lifecycle.
type Reconciler struct {
	store       *store.Store
	titleMaxLen int

	mu       sync.Mutex
	inflight map[string]*stateless.StateMachine // sessionID + "/" + placeholderID
}

// New creates a reconciler over the given store. titleMaxLen is the display
// length a first user turn is truncated to when it becomes the session title.
func New(st *store.Store, titleMaxLen int) *Reconciler {
	if titleMaxLen <= 0 {
		titleMaxLen = 25
	}
	return &Reconciler{
		store:       st,
		titleMaxLen: titleMaxLen,
		inflight:    make(map[string]*stateless.StateMachine),
	}
}

func turnKey(sessionID, placeholderID string) string {
	return sessionID + "/" + placeholderID
}

// BeginTurn appends the user message and a fresh model placeholder to the
// session, fixing the session title if this is its first user turn. It
// rejects the turn while another placeholder in the same session is still
// streaming. The created placeholder is returned.
func (r *Reconciler) BeginTurn(sessionID string, userMsg chat.Message) (chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.store.SessionByID(sessionID)
	if !ok {
		return chat.Message{}, ErrUnknownSession
	}
	if sess.InFlight() {
		return chat.Message{}, ErrTurnInFlight
	}

	placeholder := chat.NewPlaceholder()
	r.store.MutateSession(sessionID, func(s chat.Session) chat.Session {
		if !s.HasUserMessage() {
			s.Title = truncateTitle(userMsg.Text(), r.titleMaxLen)
		}
		return s.WithMessage(userMsg).WithMessage(placeholder)
	})

	r.inflight[turnKey(sessionID, placeholder.ID)] = newTurnFSM()
	return placeholder, nil
}

// ApplyProgress overwrites the placeholder's content with the cumulative
// snapshot. Safe to call repeatedly; each call fully replaces the previous
// partial content. Nil sources preserve whatever was set before. Calls for a
// deleted session or a finalized placeholder are silent no-ops.
func (r *Reconciler) ApplyProgress(sessionID, placeholderID, cumulativeText string, sources []chat.GroundingSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.fire(sessionID, placeholderID, TriggerProgress) {
		return
	}
	r.store.MutateSession(sessionID, func(s chat.Session) chat.Session {
		return s.MapMessage(placeholderID, func(m chat.Message) chat.Message {
			m.Parts = []chat.Part{chat.TextPart(cumulativeText)}
			if sources != nil {
				m.Sources = sources
			}
			return m
		})
	})
}

// FinalizeSuccess marks the placeholder sent with its final content.
func (r *Reconciler) FinalizeSuccess(sessionID, placeholderID, finalText string, finalSources []chat.GroundingSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.fire(sessionID, placeholderID, TriggerSucceeded) {
		return
	}
	delete(r.inflight, turnKey(sessionID, placeholderID))
	r.store.MutateSession(sessionID, func(s chat.Session) chat.Session {
		return s.MapMessage(placeholderID, func(m chat.Message) chat.Message {
			m.Parts = []chat.Part{chat.TextPart(finalText)}
			if finalSources != nil {
				m.Sources = finalSources
			}
			m.Status = chat.StatusSent
			return m
		})
	})
}

// FinalizeError marks the placeholder failed, replacing any partial content
// with the display error text.
func (r *Reconciler) FinalizeError(sessionID, placeholderID, errorDisplayText string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.fire(sessionID, placeholderID, TriggerFailed) {
		return
	}
	delete(r.inflight, turnKey(sessionID, placeholderID))
	r.store.MutateSession(sessionID, func(s chat.Session) chat.Session {
		return s.MapMessage(placeholderID, func(m chat.Message) chat.Message {
			m.Parts = []chat.Part{chat.TextPart(errorDisplayText)}
			m.Status = chat.StatusError
			return m
		})
	})
}

// fire advances the turn machine. Unknown turns (never begun, already
// finalized) and rejected triggers report false; the caller then no-ops.
// Caller must hold r.mu.
func (r *Reconciler) fire(sessionID, placeholderID string, trigger TurnTrigger) bool {
	fsm, ok := r.inflight[turnKey(sessionID, placeholderID)]
	if !ok {
		logger.L.Debug("reconcile call for unknown turn ignored",
			"session", sessionID, "placeholder", placeholderID, "trigger", trigger)
		return false
	}
	if err := fsm.Fire(trigger); err != nil {
		logger.L.Warn("turn FSM rejected trigger",
			"session", sessionID, "placeholder", placeholderID, "trigger", trigger, "error", err)
		return false
	}
	return true
}

// truncateTitle clips text to max runes, marking the cut with an ellipsis.
func truncateTitle(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
