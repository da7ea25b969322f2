package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type HTTPConfig struct {
	RequestTimeout time.Duration
	RateLimiter    *rate.Limiter
	UserAgent      string
}

func DefaultHTTPConfig(requestsPerSecond float64, timeout time.Duration) *HTTPConfig {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPConfig{
		RequestTimeout: timeout,
		RateLimiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), DefaultBurst),
		UserAgent:      DefaultUserAgent,
	}
}

// Request describes a single vendor call.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string

	// Payload is sent as-is when it is []byte or string, JSON-encoded otherwise.
	Payload any

	// Timeout overrides the client default when positive.
	Timeout time.Duration
}

// Response is a vendor reply with a best-effort decoded body.
type Response struct {
	StatusCode int
	Body       []byte

	// Value is the decoded JSON value when the body is decodable, otherwise
	// the raw text.
	Value any
}

func (r *Response) Text() string { return string(r.Body) }

// IsOK is the status policy for vendor calls: only 200 and 201 count.
// 202-299 are failures as well.
func IsOK(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated
}

// Client issues rate-limited vendor requests.
type Client struct {
	Config *HTTPConfig
	HTTP   *http.Client
}

func NewClient(config *HTTPConfig) *Client {
	if config == nil {
		config = DefaultHTTPConfig(0, 0)
	}
	return &Client{
		Config: config,
		HTTP:   &http.Client{},
	}
}

// Fetch performs one request. It never retries; a network error, timeout or
// non-OK status all come back as *FetchError.
func (c *Client) Fetch(ctx context.Context, r Request) (*Response, error) {
	if r.URL == "" {
		return nil, &FetchError{Err: fmt.Errorf("empty url")}
	}
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, &FetchError{URL: r.URL, Err: fmt.Errorf("unsupported method %q", r.Method)}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = c.Config.RequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.Config.RateLimiter != nil {
		if err := c.Config.RateLimiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: r.URL, Err: err}
		}
	}

	body, contentType, err := encodePayload(r.Payload)
	if err != nil {
		return nil, &FetchError{URL: r.URL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, &FetchError{URL: r.URL, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Config.UserAgent != "" {
		req.Header.Set("User-Agent", c.Config.UserAgent)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &FetchError{URL: r.URL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: r.URL, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	if !IsOK(resp.StatusCode) {
		return nil, &FetchError{URL: r.URL, StatusCode: resp.StatusCode}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       raw,
		Value:      decodeBody(resp.Header.Get("Content-Type"), raw),
	}, nil
}

func encodePayload(payload any) (io.Reader, string, error) {
	switch p := payload.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(p), "", nil
	case string:
		return strings.NewReader(p), "", nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, "", fmt.Errorf("encode payload: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// decodeBody tries the declared content type first, then an opportunistic
// decode of the text; the declared decode wins when both succeed.
func decodeBody(contentType string, raw []byte) any {
	var structured, opportunistic any
	structuredOK, opportunisticOK := false, false

	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasSuffix(mediaType, "json") {
		structuredOK = json.Unmarshal(raw, &structured) == nil
	}
	opportunisticOK = json.Unmarshal(raw, &opportunistic) == nil

	switch {
	case structuredOK:
		return structured
	case opportunisticOK:
		return opportunistic
	default:
		return string(raw)
	}
}
