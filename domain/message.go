// Package domain contains core concepts of the messaging client.
// This file defines sessions, messages and the annotated feed entries.
// Messages are immutable once built; annotations are recomputed, never patched.
package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Session groups the ordered messages between one customer and one tenant.
// The platform creates it lazily on the first conversation open and returns
// the same row while an active one exists.
type Session struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant"`
	CustomerID string    `json:"customer"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Message represents one chat message as the platform serializes it.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session"`
	Sender    SenderRef `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

// NewProvisional builds the locally constructed counterpart of a message
// that has no durable server row yet: a local send, or a raw inbound frame.
func NewProvisional(sessionID string, sender SenderRef, content string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		CreatedAt: at,
		Read:      false,
	}
}

// AnnotatedMessage is a Message plus the derived, non-persisted fields the
// presentation layer needs. Produced only by the projection.
type AnnotatedMessage struct {
	Message
	IsMine       bool
	IsGroupStart bool
}

// NotificationEvent is the displayable part of a tenant-wide event.
// Ephemeral, never persisted by this client.
type NotificationEvent struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// SenderRef is the raw sender reference attached to a message. The platform
// serializes it inconsistently: a bare UUID string, a numeric user id, or an
// object carrying "id" or "user_id". Decoding is tolerant; an unrecognized
// shape yields a zero ref rather than an error.
type SenderRef struct {
	raw string
}

// NewSenderRef wraps an already-scalar identity value.
func NewSenderRef(id string) SenderRef {
	return SenderRef{raw: id}
}

// Scalar returns the extracted identity value, possibly empty.
func (s SenderRef) Scalar() string { return s.raw }

func (s SenderRef) IsZero() bool { return s.raw == "" }

func (s *SenderRef) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	s.raw = scalarOf(value)
	return nil
}

func (s SenderRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.raw)
}

// scalarOf extracts an id from the supported shapes. Objects prefer the
// primary "id" field and fall back to "user_id".
func scalarOf(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any:
		if id := scalarOf(v["id"]); id != "" {
			return id
		}
		return scalarOf(v["user_id"])
	default:
		return ""
	}
}
