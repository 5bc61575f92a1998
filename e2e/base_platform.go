package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"pulsechat/auth"
	"pulsechat/domain"
)

// Platform is an in-process stand-in for the ClientPulse backend: the chat
// REST endpoints plus the chat and dashboard sockets. Frames written by a
// client are echoed back, the way the real consumer broadcasts to the group.
type Platform struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu        sync.Mutex
	session   domain.Session
	history   []domain.Message
	chatConns []*websocket.Conn
	dashConns []*websocket.Conn
	received  []string
}

func NewPlatform(history []domain.Message) *Platform {
	p := &Platform{
		session: domain.Session{
			ID:        uuid.NewString(),
			Active:    true,
			CreatedAt: time.Now().UTC(),
		},
		history: history,
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.route))
	return p
}

func (p *Platform) Close() { p.server.Close() }

func (p *Platform) APIBaseURL() string { return p.server.URL }

func (p *Platform) WSBaseURL() string {
	return "ws" + strings.TrimPrefix(p.server.URL, "http")
}

// SeedHistory installs the persisted rows the messages endpoint serves,
// stamped with the platform's session id.
func (p *Platform) SeedHistory(messages []domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range messages {
		messages[i].SessionID = p.session.ID
	}
	p.history = messages
}

func (p *Platform) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.ID
}

// ReceivedMessages lists the chat frame contents clients sent so far.
func (p *Platform) ReceivedMessages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.received))
	copy(out, p.received)
	return out
}

// PushChatFrame emits a frame to every connected chat client.
func (p *Platform) PushChatFrame(senderID, message string) error {
	payload, err := json.Marshal(map[string]any{
		"message":   message,
		"sender_id": senderID,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	conns := append([]*websocket.Conn{}, p.chatConns...)
	p.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return err
		}
	}
	return nil
}

// PushNotification emits a raw payload on every dashboard socket.
func (p *Platform) PushNotification(payload string) error {
	p.mu.Lock()
	conns := append([]*websocket.Conn{}, p.dashConns...)
	p.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Platform) DashboardConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dashConns) > 0
}

func (p *Platform) route(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/chat/start_session/" && r.Method == http.MethodPost:
		p.mu.Lock()
		session := p.session
		p.mu.Unlock()
		_ = json.NewEncoder(w).Encode(session)

	case strings.HasPrefix(path, "/chat/") && strings.HasSuffix(path, "/messages/"):
		p.mu.Lock()
		history := append([]domain.Message{}, p.history...)
		p.mu.Unlock()
		_ = json.NewEncoder(w).Encode(history)

	case path == "/chat/" && r.Method == http.MethodGet:
		p.mu.Lock()
		sessions := []domain.Session{p.session}
		p.mu.Unlock()
		_ = json.NewEncoder(w).Encode(sessions)

	case strings.HasPrefix(path, "/ws/chat/"):
		p.serveChatSocket(w, r)

	case strings.HasPrefix(path, "/ws/dashboard/"):
		p.serveDashboardSocket(w, r)

	default:
		http.NotFound(w, r)
	}
}

// serveChatSocket registers the connection and echoes inbound frames back,
// recording their content on the way.
func (p *Platform) serveChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.chatConns = append(p.chatConns, conn)
	p.mu.Unlock()

	go func() {
		defer conn.Close()
		for {
			kind, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var frame struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(payload, &frame); err == nil {
				p.mu.Lock()
				p.received = append(p.received, frame.Message)
				p.mu.Unlock()
			}

			if err := conn.WriteMessage(kind, payload); err != nil {
				return
			}
		}
	}()
}

func (p *Platform) serveDashboardSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.dashConns = append(p.dashConns, conn)
	p.mu.Unlock()

	go func() {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// BasePlatformSuite boots one fake platform per suite and carries the shared
// helpers the scenarios use.
type BasePlatformSuite struct {
	suite.Suite
	Config   Config
	Platform *Platform
}

func (s *BasePlatformSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

// StepHeader prints a colorized section marker in the test logs.
func (s *BasePlatformSuite) StepHeader(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// SignToken issues a platform-shaped access token for a test viewer.
func (s *BasePlatformSuite) SignToken(userID, tenantID string, roles ...string) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.CustomClaims{
		UserID:   userID,
		TenantID: tenantID,
		Roles:    roles,
	}).SignedString([]byte("e2e-secret"))
	s.Require().NoError(err)
	return token
}

// Eventually polls the condition with the suite's standard budget.
func (s *BasePlatformSuite) Eventually(cond func() bool, msg string) {
	s.Require().Eventually(cond, 3*time.Second, 10*time.Millisecond, msg)
}
