// Package api is the REST client for the chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/chatstore/internal/chat"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 15 * time.Second
	// AuthCookie carries the session credential.
	AuthCookie = "jwt"
)

// ErrNetwork wraps transport failures: the server was never reached or the
// response could not be read.
var ErrNetwork = errors.New("network failure")

// Error is a non-2xx response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// UserMessage returns the server-provided text.
func (e *Error) UserMessage() string {
	return e.Message
}

// Client talks to the messages endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithToken stores token as the auth cookie for the base URL.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		if token == "" || c.httpClient.Jar == nil {
			return
		}
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return
		}
		c.httpClient.Jar.SetCookies(u, []*http.Cookie{{Name: AuthCookie, Value: token, Path: "/"}})
	}
}

// NewClient creates a client for baseURL with a cookie jar, so credentials
// set by the server are replayed on later calls.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout, Jar: jar},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListContacts fetches the directory of users the caller can message.
func (c *Client) ListContacts(ctx context.Context) ([]chat.Contact, error) {
	var out []chat.Contact
	if err := c.do(ctx, http.MethodGet, "/messages/users", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []chat.Contact{}
	}
	return out, nil
}

// ListMessages fetches the full history with one contact.
func (c *Client) ListMessages(ctx context.Context, contactID string) ([]chat.Message, error) {
	var out []chat.Message
	if err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(contactID), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []chat.Message{}
	}
	return out, nil
}

// SendMessage posts a message and returns the server's stored copy.
func (c *Client) SendMessage(ctx context.Context, contactID string, msg chat.OutgoingMessage) (chat.Message, error) {
	var out chat.Message
	if err := c.do(ctx, http.MethodPost, "/messages/send/"+url.PathEscape(contactID), msg, &out); err != nil {
		return chat.Message{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrNetwork, err)
	}
	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Message
			if apiErr.Message == "" {
				apiErr.Message = payload.Error
			}
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

var _ chat.API = (*Client)(nil)
