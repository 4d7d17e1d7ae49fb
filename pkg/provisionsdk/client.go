package provisionsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client performs unauthenticated calls and creates Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client with a generous timeout: a bulk import of a few
// hundred rows is processed sequentially and can take minutes.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Minute},
	}
}

// Login exchanges operator credentials for a Session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	tok, err := c.Token(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.NewSession(tok.AccessToken, tok.Role, tok.MustChangePassword), nil
}

// Token calls the token endpoint directly.
func (c *Client) Token(ctx context.Context, email, password string) (*TokenResponse, error) {
	body, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/token", bytes.NewReader(body), jsonHeaders)
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return &tok, nil
}

// NewSession wraps an access token obtained elsewhere.
func (c *Client) NewSession(accessToken, role string, mustChangePassword bool) *Session {
	return &Session{
		client:             c,
		accessToken:        accessToken,
		role:               role,
		mustChangePassword: mustChangePassword,
	}
}

// Bootstrap creates the first superadmin. It only succeeds on an empty
// directory and requires the server's bootstrap token.
func (c *Client) Bootstrap(ctx context.Context, bootstrapToken string, req BootstrapRequest) (*BootstrapResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/bootstrap", bytes.NewReader(body), map[string]string{
		"Content-Type":      "application/json",
		"X-Bootstrap-Token": bootstrapToken,
	})
	if err != nil {
		return nil, err
	}

	var out BootstrapResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var h HealthResponse
	if err := decodeJSON(resp, &h, http.StatusOK); err != nil {
		return nil, err
	}
	return &h, nil
}
