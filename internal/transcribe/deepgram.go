// Package transcribe implements the HTTP client for the Deepgram
// speech-to-text API. Audio is relayed as-is with a bearer token; the
// response is decoded into typed structs so an absent transcript is
// distinguishable from a failed request.
package transcribe

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
)

const defaultEndpoint = "https://api.deepgram.com/v1/listen"

// Error reports a failed transcription request (non-2xx or transport).
// Callers absorb it: a failed transcription never fails a chat turn.
type Error struct {
	Status string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return "transcription: " + e.Cause.Error()
	}
	return "transcription: unexpected status " + e.Status
}

func (e *Error) Unwrap() error { return e.Cause }

// Config contains transcription client configuration.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

type Client struct {
	config Config
	log    *slog.Logger
	client *http.Client
}

// NewClient validates the configuration and builds a client. A missing API
// key is an error here rather than a malformed header at request time.
func NewClient(config Config, log *slog.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("deepgram API key cannot be empty")
	}
	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		config: config,
		log:    log,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

// response mirrors the Deepgram pre-recorded transcription shape:
// results.channels[0].alternatives[0].transcript.
type response struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// transcript walks the response path step by step. ok is false when any
// level of the path is absent, which is different from a present but empty
// transcript.
func (r *response) transcript() (string, bool) {
	chans := r.Results.Channels
	if len(chans) == 0 {
		return "", false
	}
	alts := chans[0].Alternatives
	if len(alts) == 0 {
		return "", false
	}
	return strings.TrimSpace(alts[0].Transcript), true
}

// Transcribe sends raw WAV bytes and returns the transcript. A missing
// response path yields ("", nil): an empty transcript is policy, not
// failure. Non-2xx responses return a typed *Error.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(audio))
	if err != nil {
		return "", &Error{Cause: err}
	}
	req.Header.Set("Authorization", "Token "+c.config.APIKey)
	req.Header.Set("Content-Type", "audio/wav")

	res, err := c.client.Do(req)
	if err != nil {
		return "", &Error{Cause: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		c.log.Warn("deepgram request failed", "status", res.Status, "body", string(body))
		return "", &Error{Status: res.Status}
	}

	var out response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", &Error{Cause: err}
	}

	text, ok := out.transcript()
	if !ok {
		c.log.Debug("deepgram response had no transcript path")
		return "", nil
	}
	return text, nil
}
