// Package rest implements the platform's chat REST surface.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pulsechat/domain"
	"pulsechat/errors"
)

// ChatAPI talks to the ClientPulse chat endpoints. All failures surface as
// the coarse sentinel the caller acts on (session vs history unavailable);
// the transport detail travels wrapped inside.
type ChatAPI struct {
	baseURL string
	token   string
	client  *http.Client
	log     *slog.Logger
}

func NewChatAPI(log *slog.Logger, baseURL, token string, timeout time.Duration) *ChatAPI {
	return &ChatAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// StartSession obtains or creates the conversation session for the
// authenticated customer with the given tenant. Repeated calls while an
// active session exists return the same session.
func (c *ChatAPI) StartSession(ctx context.Context, tenantID string) (domain.Session, error) {
	var session domain.Session
	payload := map[string]string{"tenant_id": tenantID}
	if err := c.doJSON(ctx, http.MethodPost, "/chat/start_session/", payload, &session); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", errors.ErrSessionUnavailable, err)
	}
	if session.ID == "" {
		return domain.Session{}, fmt.Errorf("%w: response carried no session id", errors.ErrSessionUnavailable)
	}
	return session, nil
}

// Messages fetches the persisted batch for a session, ascending by created_at.
func (c *ChatAPI) Messages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var messages []domain.Message
	path := fmt.Sprintf("/chat/%s/messages/", sessionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrHistoryUnavailable, err)
	}
	return messages, nil
}

// Sessions lists the viewer's conversations, most recently updated first.
func (c *ChatAPI) Sessions(ctx context.Context) ([]domain.Session, error) {
	var sessions []domain.Session
	if err := c.doJSON(ctx, http.MethodGet, "/chat/", nil, &sessions); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrSessionUnavailable, err)
	}
	return sessions, nil
}

func (c *ChatAPI) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a bounded slice of the body for the log, then drop it.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("Chat API refused request",
			"method", method, "path", path,
			"status", resp.StatusCode, "body", string(detail))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
