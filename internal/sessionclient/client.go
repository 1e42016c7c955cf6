// Package sessionclient keeps a browser-style session against the portfolio
// API: cookies in a jar, one shared refresh for concurrent 401s, and a local
// view of who is signed in that only ever changes from server responses.
package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"portfolio-api/internal/apierror"
	"portfolio-api/internal/observability"
)

const (
	defaultRefreshTimeout = 10 * time.Second
	maxResponseBytes      = 1 << 20
	refreshKey            = "refresh"
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

type State struct {
	Authenticated bool
	User          *User
}

type Options struct {
	BaseURL string
	// HTTPClient is used as is when it already has a cookie jar.
	HTTPClient     *http.Client
	RefreshTimeout time.Duration
	Logger         *observability.Logger
}

type Client struct {
	baseURL        *url.URL
	http           *http.Client
	refreshTimeout time.Duration
	logger         *observability.Logger
	refreshes      singleflight.Group

	mu    sync.RWMutex
	state State
	// generation advances on every login and every completed refresh.
	generation     uint64
	lastRefreshErr error
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		clone := *httpClient
		clone.Jar = jar
		httpClient = &clone
	}

	timeout := opts.RefreshTimeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.Discard()
	}

	return &Client{baseURL: base, http: httpClient, refreshTimeout: timeout, logger: logger}, nil
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := c.state
	if state.User != nil {
		user := *state.User
		state.User = &user
	}
	return state
}

// Hydrate asks the server who the session belongs to. An unauthenticated
// session is not an error.
func (c *Client) Hydrate(ctx context.Context) (State, error) {
	var body struct {
		Authenticated bool `json:"authenticated"`
		User          User `json:"user"`
	}

	err := c.Do(ctx, http.MethodGet, "/auth/verify", nil, &body)
	switch {
	case callerGaveUp(ctx, err):
		return c.State(), err
	case err == nil && body.Authenticated:
		c.setUser(&body.User)
	case err == nil, errors.Is(err, ErrSessionExpired), isUnauthorized(err):
		c.clear()
	default:
		return c.State(), err
	}
	return c.State(), nil
}

func (c *Client) Login(ctx context.Context, username, password string) (User, error) {
	var body struct {
		Message string `json:"message"`
		User    User   `json:"user"`
	}

	payload := map[string]string{"username": username, "password": password}
	if err := c.send(ctx, http.MethodPost, "/auth/login", payload, &body); err != nil {
		return User{}, err
	}

	c.mu.Lock()
	c.generation++
	c.lastRefreshErr = nil
	c.mu.Unlock()
	c.setUser(&body.User)
	return body.User, nil
}

// Logout always leaves the local state signed out, even when the server call
// fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.send(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.clear()
	if err != nil {
		c.logger.Warn("session_logout_failed", map[string]any{"error": err.Error()})
	}
	return err
}

// UnlockAccount calls the shared-secret unlock endpoint. It needs no session.
func (c *Client) UnlockAccount(ctx context.Context, username, adminSecret string) error {
	payload := map[string]string{"username": username, "adminSecret": adminSecret}
	return c.send(ctx, http.MethodPost, "/auth/unlock-account", payload, nil)
}

// Do sends a JSON request and decodes a 2xx body into out. A 401 that a
// refresh can fix triggers at most one refresh shared by every concurrent
// caller, after which the request is replayed once.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	generation := c.currentGeneration()

	err := c.send(ctx, method, path, in, out)
	var apiErr *APIError
	if err == nil || !errors.As(err, &apiErr) || !recoverable(apiErr) {
		return err
	}

	if err := c.refresh(ctx, generation); err != nil {
		if callerGaveUp(ctx, err) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	return c.send(ctx, method, path, in, out)
}

// refresh joins the outstanding refresh or starts one. A caller whose request
// was sent before the latest refresh completed gets that refresh's outcome
// instead of starting another.
func (c *Client) refresh(ctx context.Context, seen uint64) error {
	ch := c.refreshes.DoChan(refreshKey, func() (any, error) {
		c.mu.RLock()
		stale, lastErr := c.generation != seen, c.lastRefreshErr
		c.mu.RUnlock()
		if stale {
			return nil, lastErr
		}

		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()

		err := c.send(refreshCtx, http.MethodPost, "/auth/refresh", nil, nil)

		c.mu.Lock()
		c.generation++
		c.lastRefreshErr = err
		if err != nil {
			c.state = State{}
		}
		c.mu.Unlock()

		if err != nil {
			c.logger.Warn("session_refresh_failed", map[string]any{"error": err.Error()})
			return nil, err
		}
		c.logger.Debug("session_refreshed", nil)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	var payload io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var body apierror.Body
		if json.Unmarshal(raw, &body) == nil {
			apiErr.Code = body.Code
			apiErr.RetryAfterMinutes = body.RetryAfterMinutes
			if body.Message != "" {
				apiErr.Message = body.Message
			}
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) currentGeneration() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *Client) setUser(user *User) {
	u := *user
	c.mu.Lock()
	c.state = State{Authenticated: true, User: &u}
	c.mu.Unlock()
}

func (c *Client) clear() {
	c.mu.Lock()
	c.state = State{}
	c.mu.Unlock()
}

// callerGaveUp reports whether err comes from ctx itself rather than from the
// server. The shared refresh keeps running for the other waiters.
func callerGaveUp(ctx context.Context, err error) bool {
	ctxErr := ctx.Err()
	return err != nil && ctxErr != nil && errors.Is(err, ctxErr)
}

func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
