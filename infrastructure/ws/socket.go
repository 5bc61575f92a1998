// Package ws adapts gorilla/websocket to the socket contracts, so the
// channel layer never sees a concrete connection type.
package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"pulsechat/contract"
)

// Dialer opens text-frame WebSocket connections with an optional bearer token.
type Dialer struct {
	token string
}

func NewDialer(token string) *Dialer {
	return &Dialer{token: token}
}

func (d *Dialer) DialContext(ctx context.Context, url string) (contract.SocketConn, error) {
	header := http.Header{}
	if d.token != "" {
		header.Set("Authorization", "Bearer "+d.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &socketConn{conn: conn}, nil
}

type socketConn struct {
	conn *websocket.Conn
}

func (s *socketConn) ReadMessage() ([]byte, error) {
	_, payload, err := s.conn.ReadMessage()
	return payload, err
}

func (s *socketConn) WriteMessage(payload []byte) error {
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *socketConn) Close() error {
	return s.conn.Close()
}
