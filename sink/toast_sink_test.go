package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"pulsechat/domain"
	"pulsechat/domain/event"
)

func TestToastSink_RendersNotice(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	s := NewToastSink(slog.Default(), &out, false)

	err := s.Consume(context.Background(), event.NotificationReceived{
		Raw:    json.RawMessage(`{}`),
		Notice: &domain.NotificationEvent{Title: "New chat", Message: "A customer is waiting"},
	})
	req.NoError(err)
	req.Contains(out.String(), "New chat: A customer is waiting")
}

func TestToastSink_IgnoresNonDisplayable(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	s := NewToastSink(slog.Default(), &out, false)

	// Raw-only payload, no toast.
	req.NoError(s.Consume(context.Background(), event.NotificationReceived{
		Raw: json.RawMessage(`{"kind": "metrics"}`),
	}))
	// Unrelated event type.
	req.NoError(s.Consume(context.Background(), event.ChannelStateChanged{
		Session: "s1",
		State:   domain.ChannelClosed,
	}))

	req.Empty(out.String())
}
