package chat

import "github.com/google/uuid"

// Session is one conversation: an identity, a display title and an ordered
// message log. The collection of sessions is always mutated copy-on-write,
// so a Session value handed out by the store is safe to read concurrently
// with later mutations.
type Session struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// NewSession creates an empty session with the given display title.
func NewSession(title string) Session {
	return Session{
		ID:       uuid.NewString(),
		Title:    title,
		Messages: []Message{},
	}
}

// MessageByID returns the message with the given id, if present.
func (s Session) MessageByID(id string) (Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// HasUserMessage reports whether the session already contains a user turn.
// The first user turn is what fixes the session title.
func (s Session) HasUserMessage() bool {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

// InFlight reports whether a placeholder is still streaming. At most one
// message per session may be in StatusSending at any time.
func (s Session) InFlight() bool {
	for _, m := range s.Messages {
		if m.Status == StatusSending {
			return true
		}
	}
	return false
}

// WithMessage returns a copy of the session with msg appended.
func (s Session) WithMessage(msg Message) Session {
	out := s
	out.Messages = make([]Message, 0, len(s.Messages)+1)
	out.Messages = append(out.Messages, s.Messages...)
	out.Messages = append(out.Messages, msg)
	return out
}

// MapMessage returns a copy of the session with the message matching id
// replaced by fn's result. All other messages are carried over untouched.
// A missing id yields the session unchanged.
func (s Session) MapMessage(id string, fn func(Message) Message) Session {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		if m.ID == id {
			out.Messages[i] = fn(m)
		} else {
			out.Messages[i] = m
		}
	}
	return out
}
