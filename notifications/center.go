// Package notifications owns the viewer-scoped notification lifecycle.
// There is no module-level "current socket": the Center is the one explicit
// context object, and swapping viewers goes through it.
package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"pulsechat/channel"
	"pulsechat/contract"
	"pulsechat/domain"
)

// Center runs at most one notification channel, tied to the authenticated
// viewer. Start for a new identity fully tears the previous channel down —
// pending retry timer included — before the new one may dial.
type Center struct {
	log        *slog.Logger
	dialer     contract.SocketDialer
	wsBase     string
	sink       contract.EventSink
	retryDelay time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	current *channel.NotificationChannel
}

func NewCenter(
	log *slog.Logger,
	dialer contract.SocketDialer,
	wsBaseURL string,
	sink contract.EventSink,
	retryDelay time.Duration,
) *Center {
	return &Center{
		log:        log,
		dialer:     dialer,
		wsBase:     wsBaseURL,
		sink:       sink,
		retryDelay: retryDelay,
	}
}

// Start connects the channel for a viewer. An unaffiliated viewer gets
// ErrNoAffiliation and no connection. Any previous channel is stopped and
// awaited first.
func (c *Center) Start(ctx context.Context, viewer domain.Viewer) error {
	c.Stop()

	ch, err := channel.NewNotificationChannel(
		c.log, c.dialer, c.wsBase, viewer, c.sink, c.retryDelay)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.current = ch
	c.mu.Unlock()

	go func() {
		defer close(done)
		if err := ch.Run(runCtx); err != nil && runCtx.Err() == nil {
			c.log.Warn("Notification channel stopped", "error", err)
		}
	}()
	return nil
}

// Stop tears the running channel down and waits for its loop to exit, so no
// late reconnect can race a Start for the next identity.
func (c *Center) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.current = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// LastEvent exposes the most recent raw payload for external consumers,
// nil when no channel ran or nothing arrived yet.
func (c *Center) LastEvent() json.RawMessage {
	c.mu.Lock()
	ch := c.current
	c.mu.Unlock()
	if ch == nil {
		return nil
	}
	return ch.LastEvent()
}

// Snapshot reports the channel state for the stats surface.
func (c *Center) Snapshot() (channel.NotificationSnapshot, bool) {
	c.mu.Lock()
	ch := c.current
	c.mu.Unlock()
	if ch == nil {
		return channel.NotificationSnapshot{}, false
	}
	return ch.Snapshot(), true
}
