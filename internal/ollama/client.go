package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Message is the wire shape Ollama expects for one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UpstreamError reports a failed response (non-2xx) or a transport failure
// from the Ollama endpoint.
type UpstreamError struct {
	Status string
	Body   string
	Cause  error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return "ollama upstream: " + e.Cause.Error()
	}
	if e.Body != "" {
		return "ollama upstream: " + e.Status + ": " + e.Body
	}
	return "ollama upstream: " + e.Status
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// IsUpstream reports whether err originated from the chat endpoint itself
// (bad status or transport failure) rather than from chunk handling.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

type TagModel struct {
	Name       string    `json:"name"`
	Model      string    `json:"model"`
	Digest     string    `json:"digest"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Details    any       `json:"details"`
}

type Client struct {
	baseURL string
	model   string
	log     *slog.Logger
	client  *http.Client
	// no timeout: a chat stream lives as long as the model keeps talking,
	// cancellation happens through the request context
	streamClient *http.Client
}

func NewClient(baseURL, defaultModel string, log *slog.Logger) *Client {
	if defaultModel == "" {
		defaultModel = "my-chatbot"
	}
	return &Client{
		baseURL:      trimSlash(baseURL),
		model:        defaultModel,
		log:          log,
		client:       &http.Client{Timeout: 240 * time.Second}, // long ops like model pull
		streamClient: &http.Client{},
	}
}

// DefaultModel returns the model used when a request does not name one.
func (c *Client) DefaultModel() string { return c.model }

func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/version", c.baseURL), nil)
	if err != nil {
		return err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
	if res.StatusCode >= 400 {
		return fmt.Errorf("ollama ping status: %d", res.StatusCode)
	}
	return nil
}

// Tags lists local models via GET /api/tags.
func (c *Client) Tags(ctx context.Context) ([]TagModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/tags", c.baseURL), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("ollama tags: %s", res.Status)
	}
	var out struct {
		Models []TagModel `json:"models"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Pull downloads a model locally via POST /api/pull.
func (c *Client) Pull(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("empty model name")
	}
	payload := map[string]any{"name": name, "stream": false}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/pull", c.baseURL), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 400 {
		return fmt.Errorf("ollama pull: %s", string(body))
	}
	c.log.Info("ollama pull done", "model", name)
	return nil
}

// ChatStream sends the full conversation to POST /api/chat and accumulates
// the streamed reply. onPartial (optional) receives the accumulated text
// after every appended chunk, so callers can render progressively. Returns
// the final reply with surrounding whitespace trimmed.
func (c *Client) ChatStream(ctx context.Context, model string, messages []Message, onPartial func(string)) (string, error) {
	if model == "" {
		model = c.model
	}
	payload := map[string]any{"model": model, "messages": messages, "stream": true}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/chat", c.baseURL), bytes.NewReader(b))
	if err != nil {
		return "", &UpstreamError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.streamClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Cause: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", &UpstreamError{Status: res.Status, Body: string(bytes.TrimSpace(body))}
	}

	return readStream(ctx, res.Body, onPartial)
}

func trimSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}
