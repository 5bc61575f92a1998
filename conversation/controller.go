// Package conversation owns the lifecycle of one open conversation view:
// session acquisition, the concurrent history fetch and live connect, and
// the merged feed both of them flow into.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"pulsechat/channel"
	"pulsechat/contract"
	"pulsechat/domain"
	"pulsechat/domain/event"
	"pulsechat/errors"
	"pulsechat/projection"
)

// Controller reconciles the REST history and the live socket for the viewer.
//
// Every async continuation is keyed on a generation token taken when the
// open started. Reopening or closing bumps the generation, so results from
// a superseded open are ignored rather than applied. That token discipline,
// not locking granularity, is what makes stale socket callbacks harmless.
type Controller struct {
	log    *slog.Logger
	api    contract.IChatAPI
	dialer contract.SocketDialer
	cache  contract.IHistoryCache
	wsBase string
	viewer domain.Viewer

	onUpdate func()

	mu        sync.Mutex
	epoch     uint64
	tenantID  string
	session   domain.Session
	timeline  *projection.Timeline
	live      *channel.LiveChannel
	connected bool
	lastErr   error
	feed      []domain.AnnotatedMessage
}

// NewController builds a controller for one viewer. cache may be nil, in
// which case reopened conversations start cold.
func NewController(
	log *slog.Logger,
	api contract.IChatAPI,
	dialer contract.SocketDialer,
	cache contract.IHistoryCache,
	wsBaseURL string,
	viewer domain.Viewer,
) *Controller {
	return &Controller{
		log:    log,
		api:    api,
		dialer: dialer,
		cache:  cache,
		wsBase: strings.TrimRight(wsBaseURL, "/"),
		viewer: viewer,
	}
}

// SetOnUpdate registers the single presentation callback, invoked after every
// feed recomputation. Must be set before Open.
func (c *Controller) SetOnUpdate(fn func()) {
	c.onUpdate = fn
}

// Open starts (or restarts) the conversation with a tenant. The session is
// resolved first; history fetch and live connect then run concurrently, each
// feeding the timeline as it completes. A previous live channel, whatever
// its state, is closed before the new one dials, so at most one channel is
// ever open for the (session, viewer) pair.
func (c *Controller) Open(ctx context.Context, tenantID string) error {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	stale := c.live
	c.live = nil
	c.tenantID = tenantID
	c.timeline = projection.NewTimeline(c.viewer.ID)
	c.connected = false
	c.lastErr = nil
	c.feed = nil
	c.mu.Unlock()

	if stale != nil {
		_ = stale.Close()
	}

	session, err := c.api.StartSession(ctx, tenantID)
	if err != nil {
		c.fail(epoch, err)
		return err
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return nil
	}
	c.session = session
	c.mu.Unlock()

	c.warmFromCache(epoch, session.ID)

	live := channel.NewLiveChannel(
		c.log, c.dialer, c.chatURL(session.ID),
		session.ID, c.viewer.ID,
		&scopedSink{controller: c, epoch: epoch},
	)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		_ = live.Close()
		return nil
	}
	c.live = live
	c.mu.Unlock()

	// History and the socket race on purpose; the timeline merges whichever
	// lands first and re-merges when the other arrives.
	go c.loadHistory(ctx, epoch, session.ID)
	go func() {
		if err := live.Connect(ctx); err != nil {
			c.log.Warn("Live connect failed", "session", session.ID, "error", err)
		}
	}()

	return nil
}

// Reconnect is the user-triggered retry: it resets and reruns the whole
// open, session acquisition included. Never called automatically.
func (c *Controller) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	tenantID := c.tenantID
	c.mu.Unlock()
	if tenantID == "" {
		return errors.ErrSessionUnavailable
	}
	return c.Open(ctx, tenantID)
}

// Send transmits the content and appends a provisional local copy shown
// immediately. The echo coming back over the socket lands inside the dedup
// window and collapses onto it.
func (c *Controller) Send(content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	c.mu.Lock()
	epoch := c.epoch
	live := c.live
	sessionID := c.session.ID
	c.mu.Unlock()

	if live == nil {
		return errors.ErrNotConnected
	}
	if err := live.Send(content); err != nil {
		return err
	}

	provisional := domain.NewProvisional(
		sessionID, domain.NewSenderRef(c.viewer.ID), content, time.Now().UTC())
	c.appendMessage(epoch, provisional)
	return nil
}

// Close tears the conversation down: the live channel closes and any
// in-flight history or session result is orphaned by the generation bump.
func (c *Controller) Close() {
	c.mu.Lock()
	c.epoch++
	live := c.live
	c.live = nil
	c.connected = false
	c.mu.Unlock()

	if live != nil {
		_ = live.Close()
	}
}

// Feed returns the current annotated sequence.
func (c *Controller) Feed() []domain.AnnotatedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.AnnotatedMessage, len(c.feed))
	copy(out, c.feed)
	return out
}

func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// LastError reports the inline error state (session or history failure).
// Cleared on the next Open.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) Session() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Controller) ChannelState() domain.ChannelState {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()
	if live == nil {
		return domain.ChannelIdle
	}
	return live.State()
}

// loadHistory fetches the persisted batch. Failure surfaces as the inline
// error state and never touches the live channel.
func (c *Controller) loadHistory(ctx context.Context, epoch uint64, sessionID string) {
	history, err := c.api.Messages(ctx, sessionID)
	if err != nil {
		c.fail(epoch, err)
		return
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.timeline.SetHistory(history)
	c.feed = c.timeline.Annotate()
	snapshot := c.timeline.Messages()
	c.mu.Unlock()

	c.persist(sessionID, snapshot)
	c.notifyUpdate()
}

// warmFromCache renders the locally cached feed while the network round
// trips. Cached rows merge through the same dedup path as everything else.
func (c *Controller) warmFromCache(epoch uint64, sessionID string) {
	if c.cache == nil {
		return
	}
	cached, err := c.cache.Load(sessionID)
	if err != nil {
		c.log.Debug("History cache miss", "session", sessionID, "error", err)
		return
	}
	if len(cached) == 0 {
		return
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.timeline.SetHistory(cached)
	c.feed = c.timeline.Annotate()
	c.mu.Unlock()

	c.notifyUpdate()
}

func (c *Controller) appendMessage(epoch uint64, m domain.Message) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	kept := c.timeline.Append(m)
	if !kept {
		c.mu.Unlock()
		return
	}
	c.feed = c.timeline.Annotate()
	sessionID := c.session.ID
	snapshot := c.timeline.Messages()
	c.mu.Unlock()

	c.persist(sessionID, snapshot)
	c.notifyUpdate()
}

func (c *Controller) fail(epoch uint64, err error) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.lastErr = err
	c.mu.Unlock()

	c.log.Warn("Conversation error", "error", err)
	c.notifyUpdate()
}

func (c *Controller) persist(sessionID string, messages []domain.Message) {
	if c.cache == nil || sessionID == "" {
		return
	}
	if err := c.cache.Store(sessionID, messages); err != nil {
		c.log.Debug("History cache store failed", "session", sessionID, "error", err)
	}
}

func (c *Controller) notifyUpdate() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}

func (c *Controller) chatURL(sessionID string) string {
	return fmt.Sprintf("%s/ws/chat/%s/", c.wsBase, sessionID)
}

// scopedSink stamps every channel event with the generation it belongs to.
type scopedSink struct {
	controller *Controller
	epoch      uint64
}

func (s *scopedSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageReceived:
		s.controller.appendMessage(s.epoch, evt.Message)
	case event.ChannelStateChanged:
		s.controller.applyChannelState(s.epoch, evt)
	}
	return nil
}

func (c *Controller) applyChannelState(epoch uint64, evt event.ChannelStateChanged) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.connected = evt.State == domain.ChannelOpen
	c.mu.Unlock()

	if evt.Err != nil {
		c.log.Info("Live channel closed", "session", evt.Session, "error", evt.Err)
	}
	c.notifyUpdate()
}
