package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"conduit/internal/logging"
	"conduit/internal/types"
)

// Client talks to the orchestration backend's chat API. Authorization is
// handled entirely by the transport of the injected http.Client; nothing
// here knows tokens exist.
type Client struct {
	baseURL string
	http    *http.Client
	// stream requests must not carry the regular request timeout: a turn
	// legitimately streams for minutes.
	streamHTTP *http.Client
	streamLog  logging.Logger
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	streamHTTP := &http.Client{Transport: httpClient.Transport}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       httpClient,
		streamHTTP: streamHTTP,
	}
}

func (c *Client) CreateSession(ctx context.Context, title string) (*types.ChatSession, error) {
	body := createSessionRequest{}
	if strings.TrimSpace(title) != "" {
		body.Title = &title
	}
	var session types.ChatSession
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/chat/sessions", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) ListSessions(ctx context.Context, skip, limit int) ([]*types.ChatSession, error) {
	path := fmt.Sprintf("/api/v1/chat/sessions?skip=%d&limit=%d", skip, limit)
	var resp sessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *Client) SessionMessages(ctx context.Context, sessionID string) ([]*types.Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("session id is required")
	}
	path := "/api/v1/chat/sessions/" + strings.TrimSpace(sessionID) + "/messages"
	var resp messagesResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) RenameSession(ctx context.Context, sessionID, title string) (*types.ChatSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("session id is required")
	}
	path := "/api/v1/chat/sessions/" + strings.TrimSpace(sessionID)
	var session types.ChatSession
	if err := c.doJSON(ctx, http.MethodPatch, path, renameSessionRequest{Title: title}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("session id is required")
	}
	path := "/api/v1/chat/sessions/" + strings.TrimSpace(sessionID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	message := payload.Error
	if message == "" {
		message = payload.Detail
	}
	if message == "" {
		message = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
