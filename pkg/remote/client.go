// Package remote talks to the AI backend that processes uploaded documents
// and answers questions about them.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/pkg/deskerr"

	"github.com/google/uuid"
)

const (
	clientVersion   = "1.0.0"
	maxResponseBody = 4 << 20
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logger.ILogger
}

type Option func(*Client)

// WithHTTPClient replaces the default client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, timeout time.Duration, log logger.ILogger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("remote backend base URL is required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type processHandbookRequest struct {
	HandbookId string `json:"handbook_id"`
	UserId     string `json:"user_id"`
}

type processSyllabusRequest struct {
	CourseId    string `json:"course_id"`
	UserId      string `json:"user_id"`
	StoragePath string `json:"storage_path"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string                 `json:"message"`
	UserId    string                 `json:"user_id"`
	SessionId string                 `json:"session_id"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

type ChatReply struct {
	Text       string
	Shape      Shape
	HTTPStatus int
}

func (c *Client) ProcessHandbook(ctx context.Context, handbookID, userID uuid.UUID) error {
	return c.trigger(ctx, "/process-handbook", processHandbookRequest{
		HandbookId: handbookID.String(),
		UserId:     userID.String(),
	})
}

func (c *Client) ProcessSyllabus(ctx context.Context, courseID, userID uuid.UUID, storagePath string) error {
	return c.trigger(ctx, "/process-syllabus", processSyllabusRequest{
		CourseId:    courseID.String(),
		UserId:      userID.String(),
		StoragePath: storagePath,
	})
}

func (c *Client) trigger(ctx context.Context, path string, body interface{}) error {
	status, raw, err := c.do(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return deskerr.Wrap(deskerr.CodeRemoteFailure,
			fmt.Sprintf("Processing backend responded with HTTP %d.", status),
			&StatusError{StatusCode: status, Body: truncate(string(raw), diagnosticLimit)})
	}
	c.log.Info("RemoteClient", "Processing triggered", map[string]interface{}{
		"path":   path,
		"status": status,
	})
	return nil
}

// Chat sends a question and decodes whichever response shape the backend
// used. The returned error is always a *deskerr.Error whose message can be
// shown to the user as-is.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	status, raw, err := c.do(ctx, http.MethodPost, "/chat", req, req.SessionId)
	if err != nil {
		return nil, err
	}

	text, shape, err := ParseAnswer(status, raw)
	if err != nil {
		c.log.Warn("RemoteClient", "Unusable chat response", map[string]interface{}{
			"status": status,
			"error":  err.Error(),
		})
		return nil, err
	}

	if status < 200 || status > 299 {
		return nil, deskerr.Wrap(deskerr.CodeRemoteFailure,
			fmt.Sprintf("Backend error (HTTP %d): %s", status, text),
			&StatusError{StatusCode: status, Body: truncate(string(raw), diagnosticLimit)})
	}

	return &ChatReply{Text: text, Shape: shape, HTTPStatus: status}, nil
}

// Health reports whether the backend's /health endpoint answers 2xx.
func (c *Client) Health(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return deskerr.Wrap(deskerr.CodeRemoteFailure,
			fmt.Sprintf("Backend health check responded with HTTP %d.", status),
			&StatusError{StatusCode: status})
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, sessionID string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Client-Version", clientVersion)
	if sessionID != "" {
		req.Header.Set("X-Session-Id", sessionID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		classified := ClassifyTransportError(err)
		c.log.Warn("RemoteClient", "Backend request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"code":   string(deskerr.CodeOf(classified)),
			"error":  err.Error(),
		})
		return 0, nil, classified
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, ClassifyTransportError(err)
	}

	c.log.Debug("RemoteClient", "Backend responded", map[string]interface{}{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return resp.StatusCode, raw, nil
}
