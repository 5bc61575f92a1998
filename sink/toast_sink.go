// Package sink contains the presentation-side consumers of realtime events.
package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gookit/color"

	"pulsechat/domain/event"
)

// ToastSink renders displayable notification payloads as terminal toasts.
// Events without a displayable field pass through silently; the raw payload
// still reaches any LastEvent consumer upstream.
type ToastSink struct {
	log     *slog.Logger
	out     io.Writer
	colours bool
}

func NewToastSink(log *slog.Logger, out io.Writer, colours bool) *ToastSink {
	return &ToastSink{log: log, out: out, colours: colours}
}

func (s *ToastSink) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.NotificationReceived)
	if !ok || evt.Notice == nil {
		return nil
	}

	title := evt.Notice.Title
	body := evt.Notice.Message
	if s.colours {
		title = color.New(color.BgBlack, color.FgYellow).Render(title)
	}

	_, err := fmt.Fprintf(s.out, "\n🔔 %s: %s\n", title, body)
	return err
}
