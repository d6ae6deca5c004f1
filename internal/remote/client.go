// Package remote implements schedule.SessionStore over the coach HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/api"
	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/logging"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

var (
	// ErrUnauthorized is wrapped in the store error when the server rejects the token.
	ErrUnauthorized = errors.New("remote: unauthorized")
	// ErrClientNotFound is wrapped in the store error when the client id is unknown.
	ErrClientNotFound = errors.New("remote: client not found")
)

const defaultTimeout = 10 * time.Second

// Client talks to the scheduler API on behalf of one coach.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	logger  *slog.Logger
}

var _ schedule.SessionStore = (*Client)(nil)

// New builds a client for the API rooted at baseURL. A nil httpClient uses a
// client with a ten second timeout.
func New(baseURL, token string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("remote: base url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: parsed, token: token, http: httpClient, logger: logger}, nil
}

// SetToken replaces the bearer token used by later calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// ListSessions implements schedule.SessionStore.
func (c *Client) ListSessions(ctx context.Context, clientID string, from, to calendar.Date) ([]schedule.Session, error) {
	query := url.Values{"from": {from.String()}, "to": {to.String()}}
	var resp api.SessionsResponse
	if _, err := c.do(ctx, "list", http.MethodGet, c.path(query, "clients", clientID, "sessions"), nil, &resp); err != nil {
		return nil, err
	}
	return toSchedule(resp.Sessions), nil
}

// CreateSession implements schedule.SessionStore.
func (c *Client) CreateSession(ctx context.Context, fields schedule.SessionFields) (schedule.Session, error) {
	var resp api.SessionResponse
	if _, err := c.do(ctx, "create", http.MethodPost, c.path(nil, "clients", fields.ClientID, "sessions"), api.FromFields(fields), &resp); err != nil {
		return schedule.Session{}, err
	}
	return resp.Session.Schedule(), nil
}

// CreateSessionsBatch implements schedule.SessionStore. Every entry must
// target the same client.
func (c *Client) CreateSessionsBatch(ctx context.Context, fields []schedule.SessionFields) ([]schedule.Session, error) {
	if len(fields) == 0 {
		return []schedule.Session{}, nil
	}
	clientID := fields[0].ClientID
	req := api.BatchRequest{Sessions: make([]api.SessionInput, 0, len(fields))}
	for _, f := range fields {
		if f.ClientID != clientID {
			return nil, &schedule.ValidationError{FieldErrors: map[string]string{"client_id": "client is required"}}
		}
		req.Sessions = append(req.Sessions, api.FromFields(f))
	}

	var resp api.BatchResponse
	status, err := c.do(ctx, "create_batch", http.MethodPost, c.path(nil, "clients", clientID, "sessions", "batch"), req, &resp)
	if err != nil {
		return nil, err
	}
	created := toSchedule(resp.Sessions)
	if status == http.StatusMultiStatus || len(created) < len(fields) {
		return created, &schedule.PartialBatchFailure{Requested: len(fields), Created: len(created), Sessions: created}
	}
	return created, nil
}

// UpdateSession implements schedule.SessionStore.
func (c *Client) UpdateSession(ctx context.Context, id string, patch schedule.SessionPatch) error {
	_, err := c.do(ctx, "update", http.MethodPatch, c.path(nil, "sessions", id), api.FromPatch(patch), nil)
	return err
}

// DeleteSession implements schedule.SessionStore.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete", http.MethodDelete, c.path(nil, "sessions", id), nil, nil)
	return err
}

// ListClients returns the coach's clients by name.
func (c *Client) ListClients(ctx context.Context) ([]api.Client, error) {
	var resp api.ClientsResponse
	if _, err := c.do(ctx, "list_clients", http.MethodGet, c.path(nil, "clients"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Clients, nil
}

func (c *Client) path(query url.Values, segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/")
	u.RawPath = ""
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends the request and decodes a 2xx body into out. Failures are mapped
// to scheduler errors.
func (c *Client) do(ctx context.Context, op, method, target string, body, out any) (int, error) {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = c.logger
	}
	logger = logger.With("component", "remote", "operation", op)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("remote: encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("remote: build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.WarnContext(ctx, "request failed", "error", err)
		return 0, schedule.Unavailable(op, err)
	}
	defer resp.Body.Close()
	logger.DebugContext(ctx, "request completed", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return resp.StatusCode, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, schedule.Unavailable(op, fmt.Errorf("decode response: %w", err))
		}
		return resp.StatusCode, nil
	}
	return resp.StatusCode, responseError(op, resp)
}

func responseError(op string, resp *http.Response) error {
	var payload api.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload)

	switch {
	case resp.StatusCode == http.StatusNotFound && (op == "update" || op == "delete"):
		return fmt.Errorf("%w: %s", schedule.ErrSessionNotFound, payload.Message)
	case resp.StatusCode == http.StatusNotFound:
		return schedule.Unavailable(op, ErrClientNotFound)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return schedule.Unavailable(op, ErrUnauthorized)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		fields := payload.Errors
		if len(fields) == 0 {
			fields = map[string]string{"request": payload.Message}
		}
		return &schedule.ValidationError{FieldErrors: fields}
	default:
		return schedule.Unavailable(op, fmt.Errorf("status %d: %s", resp.StatusCode, payload.Message))
	}
}

func toSchedule(sessions []api.Session) []schedule.Session {
	out := make([]schedule.Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Schedule())
	}
	return out
}
