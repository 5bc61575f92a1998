package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/qmuntal/stateless"

	"pulsechat/contract"
	"pulsechat/domain"
	"pulsechat/domain/event"
	"pulsechat/errors"
)

// NotificationSnapshot is a point-in-time view of the channel for the stats
// surface.
type NotificationSnapshot struct {
	Target   string
	State    domain.ChannelState
	Attempts int
	Opens    int
}

// NotificationChannel maintains the single viewer-scoped event socket.
// Unlike the live chat channel it re-arms itself after a fixed delay, for as
// long as its context lives. Canceling the context cancels any pending retry
// timer and closes the socket, so a viewer change can never leak a
// connection belonging to the previous identity.
type NotificationChannel struct {
	log        *slog.Logger
	dialer     contract.SocketDialer
	target     string
	sink       contract.EventSink
	retryDelay time.Duration

	mu        sync.Mutex
	fsm       *stateless.StateMachine
	lastEvent json.RawMessage
	attempts  int
	opens     int
}

// NewNotificationChannel resolves the target from the viewer's affiliation:
// tenant-scoped when the viewer belongs to a tenant, platform-wide for
// elevated roles. A viewer with neither gets ErrNoAffiliation and no channel.
func NewNotificationChannel(
	log *slog.Logger,
	dialer contract.SocketDialer,
	wsBaseURL string,
	viewer domain.Viewer,
	sink contract.EventSink,
	retryDelay time.Duration,
) (*NotificationChannel, error) {
	base := strings.TrimRight(wsBaseURL, "/")

	var target string
	switch {
	case viewer.TenantID != "":
		target = fmt.Sprintf("%s/ws/dashboard/%s/", base, viewer.TenantID)
	case viewer.Elevated():
		target = base + "/ws/super-admin/"
	default:
		return nil, errors.ErrNoAffiliation
	}

	return &NotificationChannel{
		log:        log,
		dialer:     dialer,
		target:     target,
		sink:       sink,
		retryDelay: retryDelay,
		fsm:        newChannelFSM(),
	}, nil
}

// Run is the connect/pump/wait loop. It only returns when ctx is canceled,
// which is the teardown path for logout and viewer-identity changes.
func (c *NotificationChannel) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.transition(triggerConnect)
		c.countAttempt()

		conn, err := c.dialer.DialContext(ctx, c.target)
		if err != nil {
			c.log.Warn("Notification connect failed", "target", c.target, "error", err)
		} else {
			c.transition(triggerOpened)
			c.countOpen()
			c.pump(ctx, conn)
		}
		c.transition(triggerClosed)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
			// Fixed, uncapped delay. Kept flat on purpose so dashboards
			// come back promptly after short outages.
		}
	}
}

// LastEvent returns the most recent raw payload, nil before the first one.
// Exposed so external consumers (dashboard refresh) can poll it.
func (c *NotificationChannel) LastEvent() json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEvent
}

func (c *NotificationChannel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stateOf(c.fsm)
}

func (c *NotificationChannel) Snapshot() NotificationSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return NotificationSnapshot{
		Target:   c.target,
		State:    stateOf(c.fsm),
		Attempts: c.attempts,
		Opens:    c.opens,
	}
}

// pump reads until the connection dies or ctx cancels. context.AfterFunc
// closes the socket on cancellation, which unblocks the read.
func (c *NotificationChannel) pump(ctx context.Context, conn contract.SocketConn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() { _ = conn.Close() }()

	for {
		payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Info("Notification stream dropped", "target", c.target, "error", err)
			}
			return
		}
		c.deliver(ctx, payload)
	}
}

// deliver retains the payload as the last event and forwards it. The toast
// field is optional: payloads without a {title,message} object still flow to
// the sink as raw events.
func (c *NotificationChannel) deliver(ctx context.Context, payload []byte) {
	raw := make(json.RawMessage, len(payload))
	copy(raw, payload)

	c.mu.Lock()
	c.lastEvent = raw
	c.mu.Unlock()

	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	var notice *domain.NotificationEvent
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Message) > 0 {
		var n domain.NotificationEvent
		if err := json.Unmarshal(envelope.Message, &n); err == nil && (n.Title != "" || n.Message != "") {
			notice = &n
		}
	}

	if err := c.sink.Consume(ctx, event.NotificationReceived{Raw: raw, Notice: notice}); err != nil {
		c.log.Debug("Notification sink refused event", "error", err)
	}
}

func (c *NotificationChannel) transition(t FSMTrigger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fire(c.log, c.fsm, t)
}

func (c *NotificationChannel) countAttempt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
}

func (c *NotificationChannel) countOpen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
}
