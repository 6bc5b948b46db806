package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"anonchat/internal/models"
)

// Client is the concrete backend over the platform's HTTP and websocket
// surface. It satisfies stream.Backend, directory.Backend and the
// presence Dialer/StatusWriter.
type Client struct {
	baseURL string
	wsURL   string
	token   string
	http    *http.Client
}

// New binds a client to the server base URL with a bearer token.
// ws://-scheme URLs for the feed endpoints are derived from baseURL.
func New(baseURL, token string) *Client {
	base := strings.TrimRight(baseURL, "/")
	ws := base
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return &Client{
		baseURL: base,
		wsURL:   ws,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListChats fetches the conversation directory.
func (c *Client) ListChats(ctx context.Context) ([]models.ChatView, error) {
	var out struct {
		Chats []models.ChatView `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chats", nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// FindOrCreateChat returns the single conversation with otherID.
func (c *Client) FindOrCreateChat(ctx context.Context, otherID string) (models.PrivateChat, error) {
	var chat models.PrivateChat
	body := map[string]string{"partner_id": otherID}
	if err := c.do(ctx, http.MethodPost, "/api/chats", body, &chat); err != nil {
		return models.PrivateChat{}, err
	}
	return chat, nil
}

// BlockChat sets the conversation's blocked-by marker to the caller.
func (c *Client) BlockChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodPost, "/api/chats/"+chatID+"/block", nil, nil)
}

// UnblockChat clears the marker.
func (c *Client) UnblockChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodPost, "/api/chats/"+chatID+"/unblock", nil, nil)
}

// MarkChatRead flips the partner's messages to read.
func (c *Client) MarkChatRead(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodPost, "/api/chats/"+chatID+"/read", nil, nil)
}

// TouchChat bumps the conversation's last-activity timestamp.
func (c *Client) TouchChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodPost, "/api/chats/"+chatID+"/touch", nil, nil)
}

// SetOnline records durable liveness; false marks the caller offline
// immediately.
func (c *Client) SetOnline(ctx context.Context, online bool) error {
	body := map[string]bool{"online": online}
	return c.do(ctx, http.MethodPost, "/api/me/heartbeat", body, nil)
}

// ListNotifications fetches the caller's notifications.
func (c *Client) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var out struct {
		Notifications []models.Notification `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

// ListUsers fetches the user directory with liveness.
func (c *Client) ListUsers(ctx context.Context) ([]models.Profile, error) {
	var out struct {
		Users []models.Profile `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}
