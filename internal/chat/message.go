package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Status is the delivery lifecycle of a message. User messages are created
// already sent; a model placeholder starts as StatusSending and is finalized
// exactly once to StatusSent or StatusError.
type Status string

const (
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusError   Status = "error"
)

// InlineData is a base64-encoded media attachment.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one unit of message content: either text or inline media.
// Exactly one of the fields is expected to be populated; order within a
// message is display order.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// TextPart builds a plain text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// MediaPart builds an inline media part.
func MediaPart(mimeType, data string) Part {
	return Part{InlineData: &InlineData{MimeType: mimeType, Data: data}}
}

// GroundingSource is a web citation surfaced by the provider's search tool.
type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Message is one turn fragment within a session.
type Message struct {
	ID        string            `json:"id"`
	Role      Role              `json:"role"`
	Parts     []Part            `json:"parts"`
	Timestamp time.Time         `json:"timestamp"`
	Status    Status            `json:"status"`
	Sources   []GroundingSource `json:"sources,omitempty"`
}

// NewUserMessage creates an immutable user turn from its content parts.
func NewUserMessage(parts []Part) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Parts:     parts,
		Timestamp: time.Now().UTC(),
		Status:    StatusSent,
	}
}

// NewPlaceholder creates the model-side placeholder appended alongside a user
// turn: one empty text part, StatusSending, awaiting stream reconciliation.
func NewPlaceholder() Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleModel,
		Parts:     []Part{TextPart("")},
		Timestamp: time.Now().UTC(),
		Status:    StatusSending,
	}
}

// NewModelMessage creates an already-final model message, e.g. the greeting
// seeded into a fresh session.
func NewModelMessage(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleModel,
		Parts:     []Part{TextPart(text)},
		Timestamp: time.Now().UTC(),
		Status:    StatusSent,
	}
}

// Text concatenates the message's text parts. Media parts contribute nothing.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		out += p.Text
	}
	return out
}

// HasContent reports whether any part carries text or media.
func (m Message) HasContent() bool {
	for _, p := range m.Parts {
		if p.Text != "" || p.InlineData != nil {
			return true
		}
	}
	return false
}
