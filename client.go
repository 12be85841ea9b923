// Package walletauth is a Go client for the wallet authentication HTTP API.
package walletauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NonceResponse is the challenge to sign
type NonceResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// User identifies an authenticated wallet owner
type User struct {
	ID            string `json:"id"`
	WalletAddress string `json:"walletAddress"`
}

// LoginResponse carries the session token
type LoginResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ConnectionEvent is one recorded login
type ConnectionEvent struct {
	At         time.Time         `json:"at"`
	Attributes map[string]string `json:"attributes"`
}

// UserHistory is the login bookkeeping of a user
type UserHistory struct {
	User
	LoginCount        int64             `json:"loginCount"`
	LastLoginAt       *time.Time        `json:"lastLoginAt"`
	ConnectionHistory []ConnectionEvent `json:"connectionHistory"`
}

// SignFunc signs a challenge message with the wallet key and returns the encoded signature
type SignFunc func(message string) (string, error)

// Client talks to a walletauth server
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.client = client
	return c
}

// Nonce requests a challenge for address
func (c *Client) Nonce(ctx context.Context, address string) (*NonceResponse, error) {
	var out NonceResponse
	err := c.do(ctx, http.MethodPost, "/auth/nonce", "", map[string]string{"walletAddress": address}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login presents a signed challenge
func (c *Client) Login(ctx context.Context, address, signature, message string, metadata map[string]any) (*LoginResponse, error) {
	body := map[string]any{
		"walletAddress": address,
		"signature":     signature,
		"message":       message,
	}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}

	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignIn runs the whole challenge flow: request a nonce, sign its message and log in
func (c *Client) SignIn(ctx context.Context, address string, sign SignFunc, metadata map[string]any) (*LoginResponse, error) {
	challenge, err := c.Nonce(ctx, address)
	if err != nil {
		return nil, err
	}

	signature, err := sign(challenge.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge: %w", err)
	}

	return c.Login(ctx, address, signature, challenge.Message, metadata)
}

// Me returns the identity behind token
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// History returns the login history of the token owner
func (c *Client) History(ctx context.Context, token string) (*UserHistory, error) {
	var out struct {
		User UserHistory `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me/history", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout revokes token
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errBody struct {
			Error   string `json:"error"`
			Details any    `json:"details"`
		}
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
			apiErr.Details = errBody.Details
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
