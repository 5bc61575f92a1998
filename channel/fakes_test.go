package channel

import (
	"context"
	"net"
	"sync"

	"pulsechat/contract"
	"pulsechat/domain/event"
)

// fakeConn is a scriptable socket: tests push inbound payloads on in and
// inspect outbound ones via sentFrames.
type fakeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu   sync.Mutex
	sent [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case payload := <-c.in:
		return payload, nil
	case <-c.closed:
		return nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(payload []byte) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) sentFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// fakeDialer serves scripted outcomes in order; once exhausted it keeps
// returning the last one.
type fakeDialer struct {
	mu       sync.Mutex
	outcomes []dialOutcome
	dials    int
}

type dialOutcome struct {
	conn contract.SocketConn
	err  error
}

func (d *fakeDialer) DialContext(ctx context.Context, _ string) (contract.SocketConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.dials
	if idx >= len(d.outcomes) {
		idx = len(d.outcomes) - 1
	}
	d.dials++
	out := d.outcomes[idx]
	return out.conn, out.err
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// gateDialer parks every dial until the gate is closed, so tests can
// interleave other calls with an in-flight dial.
type gateDialer struct {
	gate chan struct{}
	conn *fakeConn
}

func (d *gateDialer) DialContext(ctx context.Context, _ string) (contract.SocketConn, error) {
	select {
	case <-d.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return d.conn, nil
}

// captureSink records every consumed event and signals arrival.
type captureSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
	ping   chan struct{}
}

func newCaptureSink() *captureSink {
	return &captureSink{ping: make(chan struct{}, 64)}
}

func (s *captureSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()

	select {
	case s.ping <- struct{}{}:
	default:
	}
	return nil
}

func (s *captureSink) all() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}
