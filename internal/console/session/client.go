package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// defaultRequestTimeout applies when the caller's HTTP client has none.
const defaultRequestTimeout = 10 * time.Second

// Client talks to the emartd auth endpoints over HTTP. It holds the
// bearer token issued at login so Me and Logout authenticate without
// the caller threading the token around.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a backend client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// loginBody mirrors POST /api/auth/token/login.
type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionEnvelope is the login/signup/me response body.
type sessionEnvelope struct {
	Token string `json:"token,omitempty"`
	User  *User  `json:"user"`
}

// Login authenticates and stores the issued token on success.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	var env sessionEnvelope
	status, err := c.postJSON(ctx, "/api/auth/token/login", loginBody{Username: username, Password: password}, &env)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		c.setToken(env.Token)
		return env.User, nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return nil, ErrInvalidCredentials
	case status == http.StatusBadRequest:
		return nil, ErrValidation
	default:
		return nil, fmt.Errorf("login: unexpected status %d", status)
	}
}

// Signup registers a new account and stores the issued token, so the
// fresh session can make authenticated calls straight away.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	var env sessionEnvelope
	status, err := c.postJSON(ctx, "/api/auth/token/signup", req, &env)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusCreated:
		c.setToken(env.Token)
		return env.User, nil
	case http.StatusConflict:
		return nil, ErrConflict
	case http.StatusBadRequest:
		return nil, ErrValidation
	default:
		return nil, fmt.Errorf("signup: unexpected status %d", status)
	}
}

// Me returns the user behind the stored credential. A 401 maps to
// ErrSessionExpired; the store resolves every error to anonymous.
func (c *Client) Me(ctx context.Context) (*User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/auth/token/me", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("me: unexpected status %d", resp.StatusCode)
	}

	var env sessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding me response: %w", err)
	}
	return env.User, nil
}

// Logout notifies the backend and drops the stored token. Errors are
// returned for logging only; the store has already cleared locally.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/token/logout", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	//nolint:errcheck // drain so the connection can be reused
	io.Copy(io.Discard, resp.Body)

	c.setToken("")
	return nil
}

// postJSON sends a JSON body and decodes a JSON response, returning
// the HTTP status. Transport failures wrap ErrNetworkUnavailable.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encoding request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	// Decode only success envelopes; error bodies carry no session data
	if resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	} else {
		//nolint:errcheck // drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// Token returns the bearer token from the most recent login.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}
