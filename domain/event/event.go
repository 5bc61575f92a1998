package event

import (
	"encoding/json"

	"pulsechat/domain"
)

// DomainEvent is anything the realtime layer can hand to a sink.
// Events without a conversation scope return an empty session id.
type DomainEvent interface {
	SessionID() string
}

// MessageReceived carries one provisional message parsed from a live frame.
type MessageReceived struct {
	Session string
	Message domain.Message
}

func (e MessageReceived) SessionID() string { return e.Session }

// ChannelStateChanged reports a live channel lifecycle transition.
// Err is set only for error-driven closes.
type ChannelStateChanged struct {
	Session string
	State   domain.ChannelState
	Err     error
}

func (e ChannelStateChanged) SessionID() string { return e.Session }

// NotificationReceived carries one tenant-wide event. Raw always holds the
// full payload; Notice is set only when the payload carried a displayable
// message.
type NotificationReceived struct {
	Raw    json.RawMessage
	Notice *domain.NotificationEvent
}

func (e NotificationReceived) SessionID() string { return "" }
