package conversation

import (
	"context"
	"net"
	"sync"

	"pulsechat/contract"
	"pulsechat/domain"
)

type fakeAPI struct {
	mu           sync.Mutex
	session      domain.Session
	sessionErr   error
	history      []domain.Message
	historyErr   error
	historyGate  chan struct{}
	sessionCalls int
	historyCalls int
}

func (a *fakeAPI) StartSession(_ context.Context, tenantID string) (domain.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionCalls++
	if a.sessionErr != nil {
		return domain.Session{}, a.sessionErr
	}
	s := a.session
	s.TenantID = tenantID
	return s, nil
}

func (a *fakeAPI) Messages(ctx context.Context, _ string) ([]domain.Message, error) {
	if a.historyGate != nil {
		select {
		case <-a.historyGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.historyCalls++
	if a.historyErr != nil {
		return nil, a.historyErr
	}
	out := make([]domain.Message, len(a.history))
	copy(out, a.history)
	return out, nil
}

func (a *fakeAPI) Sessions(context.Context) ([]domain.Session, error) {
	return nil, nil
}

type fakeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu   sync.Mutex
	sent [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
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
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
}

func (d *fakeDialer) DialContext(ctx context.Context, _ string) (contract.SocketConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.err != nil {
		return nil, d.err
	}

	conn := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

type memoryCache struct {
	mu    sync.Mutex
	feeds map[string][]domain.Message
}

func newMemoryCache() *memoryCache {
	return &memoryCache{feeds: map[string][]domain.Message{}}
}

func (c *memoryCache) Store(sessionID string, messages []domain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(messages))
	copy(out, messages)
	c.feeds[sessionID] = out
	return nil
}

func (c *memoryCache) Load(sessionID string) ([]domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feeds[sessionID], nil
}
