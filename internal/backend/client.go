// AngelaMos | 2026
// client.go

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carterperez-dev/tailorbook/internal/config"
)

const minAnonKeyLength = 21

// ErrNotConfigured is returned by every call when the backend URL or key is
// missing or malformed.
//
//nolint:staticcheck // shown to users verbatim
var ErrNotConfigured = errors.New(
	"Backend is not configured. Please update .env with valid credentials.",
)

// APIError is a non-2xx answer from the backend. Error returns the
// backend's own message so forms can show it verbatim.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client is shared by every browser bundle. It holds no per-user state;
// tokens travel with each call.
type Client struct {
	baseURL    *url.URL
	anonKey    string
	http       *http.Client
	stream     *http.Client
	configured bool
}

func New(cfg config.BackendConfig) *Client {
	c := &Client{
		anonKey: cfg.AnonKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		stream:  &http.Client{},
	}

	u, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" &&
		len(cfg.AnonKey) >= minAnonKeyLength {
		c.baseURL = u
		c.configured = true
	}

	return c
}

// WithHTTPClient swaps the transport, mainly for tests. Streams reuse its
// transport without the timeout.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	stream := *h
	stream.Timeout = 0
	c.stream = &stream
	return c
}

func (c *Client) Configured() bool { return c.configured }

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/v1" + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	token string,
	body any,
) (*http.Request, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// do sends one JSON request and decodes the data member of the response
// envelope into out. A nil out discards the body.
func (c *Client) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	token string,
	body, out any,
) error {
	req, err := c.newRequest(ctx, method, path, query, token, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := decodeEnvelope(resp, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode}
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

func decodeEnvelope(resp *http.Response, env *envelope) error {
	return json.NewDecoder(resp.Body).Decode(env)
}

// Ping checks the backend's liveness endpoint. It serves as the web app's
// readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	if !c.configured {
		return ErrNotConfigured
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/healthz"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping backend: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}
