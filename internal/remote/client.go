// Package remote is a core.Backend that delegates conversion to an HTTP
// service.
//
// The service receives a multipart form with the log text in field "text"
// and the binary in file field "elf_file", and answers
// {"converted_text": "..."}. This server's own POST /api/convert speaks the
// same protocol, so one instance can resolve for another.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/addr2line-web/addr2line/internal/core"
)

// maxResponseSize caps how much of a response body is read (64MB).
const maxResponseSize = 64 << 20

// Config configures a Client.
type Config struct {
	// URL is the conversion endpoint, e.g. http://symbolizer:8000/convert.
	URL string

	// Timeout bounds one request. Zero means no client-side timeout.
	Timeout time.Duration

	// APIKey, when set, is sent as X-API-Key.
	APIKey string

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client implements core.Backend over HTTP.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for cfg.URL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote: URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{url: cfg.URL, apiKey: cfg.APIKey, httpClient: httpClient}, nil
}

// RemoteError is a conversion the service refused or failed.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote resolver returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote resolver returned %d: %s", e.StatusCode, e.Message)
}

// errorBody covers this server's error payload and FastAPI's {"detail"}.
type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Detail  json.RawMessage `json:"detail"`
}

type convertResponse struct {
	ConvertedText *string `json:"converted_text"`
}

// Convert posts text and binary and returns the converted text.
func (c *Client) Convert(ctx context.Context, text string, binary []byte) (*core.Resolution, error) {
	body, contentType, err := encodeForm(text, binary)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("remote resolver: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote resolver: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("remote resolver: read response: %w", err)
	}

	slog.Debug("remote conversion",
		"url", c.url,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, respBody)
	}

	var out convertResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("remote resolver: decode response: %w", err)
	}
	if out.ConvertedText == nil {
		return nil, fmt.Errorf("remote resolver: response has no converted_text")
	}

	return &core.Resolution{Text: *out.ConvertedText}, nil
}

func encodeForm(text string, binary []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("text", text); err != nil {
		return nil, "", fmt.Errorf("remote resolver: encode text: %w", err)
	}
	part, err := w.CreateFormFile("elf_file", "binary.elf")
	if err != nil {
		return nil, "", fmt.Errorf("remote resolver: encode binary: %w", err)
	}
	if _, err := part.Write(binary); err != nil {
		return nil, "", fmt.Errorf("remote resolver: encode binary: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("remote resolver: encode form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func decodeError(status int, body []byte) error {
	rerr := &RemoteError{StatusCode: status}

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		rerr.Code = eb.Code
		switch {
		case eb.Message != "":
			rerr.Message = eb.Message
		case eb.Error != "":
			rerr.Message = eb.Error
		case len(eb.Detail) > 0:
			var detail string
			if json.Unmarshal(eb.Detail, &detail) == nil {
				rerr.Message = detail
			} else {
				rerr.Message = string(eb.Detail)
			}
		}
	}
	if rerr.Message == "" {
		rerr.Message = strings.TrimSpace(string(body))
		if len(rerr.Message) > 200 {
			rerr.Message = rerr.Message[:200] + "..."
		}
	}
	if rerr.Message == "" {
		rerr.Message = http.StatusText(status)
	}
	return rerr
}
