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

// Frame is the wire shape of the per-session chat socket, both directions.
type Frame struct {
	Message  string           `json:"message"`
	SenderID domain.SenderRef `json:"sender_id"`
}

// LiveChannel is one chat socket for one (session, viewer) pair.
//
// Single use: Connect may be called once; any close, clean or not, is final.
// Retrying is the owner's decision and means building a fresh instance, so
// a stale channel can never resurrect itself behind the owner's back.
type LiveChannel struct {
	log       *slog.Logger
	dialer    contract.SocketDialer
	url       string
	sessionID string
	viewerID  string
	sink      contract.EventSink

	mu   sync.Mutex
	fsm  *stateless.StateMachine
	conn contract.SocketConn
}

func NewLiveChannel(
	log *slog.Logger,
	dialer contract.SocketDialer,
	url string,
	sessionID string,
	viewerID string,
	sink contract.EventSink,
) *LiveChannel {
	return &LiveChannel{
		log:       log,
		dialer:    dialer,
		url:       url,
		sessionID: sessionID,
		viewerID:  viewerID,
		sink:      sink,
		fsm:       newChannelFSM(),
	}
}

// Connect dials the session socket and starts the read pump. It returns once
// the connection is established or has failed; it never retries on its own.
func (c *LiveChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if stateOf(c.fsm) != domain.ChannelIdle {
		c.mu.Unlock()
		return fmt.Errorf("%w: channel already used", errors.ErrStreamClosed)
	}
	fire(c.log, c.fsm, triggerConnect)
	c.mu.Unlock()

	conn, err := c.dialer.DialContext(ctx, c.url)
	if err != nil {
		c.shutdown(ctx, fmt.Errorf("%w: %v", errors.ErrStreamClosed, err))
		return fmt.Errorf("%w: %v", errors.ErrStreamClosed, err)
	}

	c.mu.Lock()
	// A Close that raced the dial has already settled the channel; the fresh
	// socket must not outlive it.
	if stateOf(c.fsm) == domain.ChannelClosed {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("%w: closed while connecting", errors.ErrStreamClosed)
	}
	c.conn = conn
	fire(c.log, c.fsm, triggerOpened)
	c.mu.Unlock()

	c.emit(ctx, event.ChannelStateChanged{Session: c.sessionID, State: domain.ChannelOpen})
	go c.readPump(ctx, conn)
	return nil
}

// Send transmits one outbound frame carrying the viewer id. Blank content is
// silently dropped; a channel that is not Open refuses with ErrNotConnected.
func (c *LiveChannel) Send(content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	c.mu.Lock()
	conn := c.conn
	open := stateOf(c.fsm) == domain.ChannelOpen
	c.mu.Unlock()

	if !open || conn == nil {
		return errors.ErrNotConnected
	}

	payload, err := json.Marshal(Frame{
		Message:  content,
		SenderID: domain.NewSenderRef(c.viewerID),
	})
	if err != nil {
		return err
	}
	return conn.WriteMessage(payload)
}

// Close tears the channel down. Safe to call in any state, any number of times.
func (c *LiveChannel) Close() error {
	c.shutdown(context.Background(), nil)
	return nil
}

func (c *LiveChannel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stateOf(c.fsm)
}

func (c *LiveChannel) Connected() bool {
	return c.State() == domain.ChannelOpen
}

// readPump delivers inbound frames until the connection dies. The conn is
// captured at pump start so a concurrent Close cannot nil it out from under
// the read loop.
func (c *LiveChannel) readPump(ctx context.Context, conn contract.SocketConn) {
	for {
		payload, err := conn.ReadMessage()
		if err != nil {
			c.shutdown(ctx, err)
			return
		}
		c.handleFrame(ctx, payload)
	}
}

// handleFrame turns one valid inbound frame into a provisional message.
// A malformed payload is logged and discarded; it never tears the channel down.
func (c *LiveChannel) handleFrame(ctx context.Context, payload []byte) {
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		c.log.Warn("Discarding inbound frame",
			"session", c.sessionID,
			"error", fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err))
		return
	}
	if frame.Message == "" {
		return
	}

	msg := domain.NewProvisional(c.sessionID, frame.SenderID, frame.Message, time.Now().UTC())
	c.emit(ctx, event.MessageReceived{Session: c.sessionID, Message: msg})
}

// shutdown settles the channel into Closed exactly once.
func (c *LiveChannel) shutdown(ctx context.Context, cause error) {
	c.mu.Lock()
	if stateOf(c.fsm) == domain.ChannelClosed {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	fire(c.log, c.fsm, triggerClosed)
	c.mu.Unlock()

	c.emit(ctx, event.ChannelStateChanged{
		Session: c.sessionID,
		State:   domain.ChannelClosed,
		Err:     cause,
	})
}

func (c *LiveChannel) emit(ctx context.Context, e event.DomainEvent) {
	if err := c.sink.Consume(ctx, e); err != nil {
		c.log.Debug("Sink refused event", "session", c.sessionID, "error", err)
	}
}
