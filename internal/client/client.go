// Package client consumes the contact extraction endpoint of a running
// contactscan service.
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

	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/stream"
)

// extractPath mirrors the server route.
const extractPath = "/api/contact-extract"

// ErrNoResult is returned when the stream ends without a result event.
var ErrNoResult = errors.New("stream ended without a result")

// APIError is a non-200 reply from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("contactscan service returned %d: %s", e.StatusCode, e.Message)
}

// ProgressFunc is called for every progress event.
type ProgressFunc func(model.Event)

// Client talks to one contactscan service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New returns a Client for the service at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract asks the service to crawl target and reads the event stream
// until the result arrives. onProgress may be nil.
func (c *Client) Extract(ctx context.Context, target, country string, onProgress ProgressFunc) (*model.Result, error) {
	payload, err := json.Marshal(map[string]string{"url": target, "country": country})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+extractPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	dec := stream.NewDecoder(resp.Body)
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil, ErrNoResult
		}
		if err != nil {
			return nil, fmt.Errorf("read event stream: %w", err)
		}
		if ev.IsResult() {
			result := model.NewResultEvent(ev.Emails, ev.Phones)
			return &model.Result{Emails: result.Emails, Phones: result.Phones}, nil
		}
		if onProgress != nil {
			onProgress(ev)
		}
	}
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck // best effort
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
