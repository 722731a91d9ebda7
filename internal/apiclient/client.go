package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"authflow/internal/logging"
	"authflow/internal/types"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// Doer is the transport seam; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the auth API. It keeps no per-user state and is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   Doer
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithClock overrides the clock used for registration timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets the timeout of the default transport. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.http.(*http.Client); ok {
			hc.Timeout = d
		}
	}
}

// New returns a Client for baseURL. A malformed baseURL is not fatal here:
// every call then fails with KindInvalidEndpoint.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "apiclient")

	base, err := parseBaseURL(baseURL)
	if err != nil {
		c.logger.Error("invalid base url", "url", baseURL, "error", err)
	} else {
		c.base = base
	}
	return c
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	const op = "login"
	req, err := newRequest(ctx, op, c.base, http.MethodPost, PathLogin, types.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return "", err
	}
	return c.token(op, req)
}

// Register creates an account and returns its access token.
// createdAt is always stamped from the client clock.
func (c *Client) Register(ctx context.Context, username, email, password string) (string, error) {
	const op = "register"
	req, err := newRequest(ctx, op, c.base, http.MethodPost, PathRegister, types.RegisterRequest{
		Username:  username,
		Email:     email,
		Password:  password,
		CreatedAt: types.FormatCreatedAt(c.now()),
	})
	if err != nil {
		return "", err
	}
	return c.token(op, req)
}

// GetProfile returns the decoded profile object as-is. Use DecodeProfile for typed fields.
func (c *Client) GetProfile(ctx context.Context, token string) (map[string]any, error) {
	const op = "get profile"
	req, err := newRequest(ctx, op, c.base, http.MethodGet, PathProfile, nil)
	if err != nil {
		return nil, err
	}
	setBearer(req, token)

	obj, _, err := c.do(op, req)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (c *Client) token(op string, req *http.Request) (string, error) {
	obj, status, err := c.do(op, req)
	if err != nil {
		return "", err
	}
	token, err := extractToken(obj)
	if err != nil {
		c.logger.Warn("response without usable token", "op", op, "status", status, "error", err)
		return "", newError(op, KindMalformedResponse, status, err)
	}
	return token, nil
}

// do sends req and decodes a JSON object from a 2xx response. The status is returned alongside.
func (c *Client) do(op string, req *http.Request) (map[string]any, int, error) {
	reqID := req.Header.Get("X-Request-ID")
	log := c.logger.With("op", op, "method", req.Method, "url", req.URL.String(), "request_id", reqID)
	log.Debug("sending request")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", "error", err, "duration", time.Since(start))
		return nil, 0, newError(op, KindTransport, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn("reading response failed", "status", resp.StatusCode, "error", err)
		return nil, resp.StatusCode, newError(op, KindTransport, resp.StatusCode, err)
	}
	log.Debug("response received", "status", resp.StatusCode, "bytes", len(body), "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serverError(body)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, resp.StatusCode, newError(op, KindMalformedResponse, resp.StatusCode, errors.New(msg))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, resp.StatusCode, newError(op, KindEmptyResponse, resp.StatusCode, fmt.Errorf("no data received"))
	}

	obj, err := decodeObject(body)
	if err != nil {
		log.Warn("undecodable response", "status", resp.StatusCode, "error", err)
		return nil, resp.StatusCode, newError(op, KindMalformedResponse, resp.StatusCode, err)
	}
	return obj, resp.StatusCode, nil
}
