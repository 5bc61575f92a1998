package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newEchoServer(t *testing.T, gotAuth *string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			kind, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, payload); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDialer_RoundTrip(t *testing.T) {
	req := require.New(t)
	var gotAuth string
	server := newEchoServer(t, &gotAuth)
	defer server.Close()

	dialer := NewDialer("token-1")
	conn, err := dialer.DialContext(context.Background(), wsURL(server))
	req.NoError(err)
	defer conn.Close()

	req.Equal("Bearer token-1", gotAuth)

	req.NoError(conn.WriteMessage([]byte(`{"message": "ping"}`)))
	payload, err := conn.ReadMessage()
	req.NoError(err)
	req.Equal(`{"message": "ping"}`, string(payload))
}

func TestDialer_NoTokenOmitsHeader(t *testing.T) {
	req := require.New(t)
	var gotAuth string
	server := newEchoServer(t, &gotAuth)
	defer server.Close()

	conn, err := NewDialer("").DialContext(context.Background(), wsURL(server))
	req.NoError(err)
	defer conn.Close()
	req.Empty(gotAuth)
}

func TestDialer_RefusedUpgrade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no sockets here", http.StatusForbidden)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewDialer("token-1").DialContext(ctx, wsURL(server))
	require.Error(t, err)
}
