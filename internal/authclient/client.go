// Package authclient talks to the auth provider and keeps the resulting
// credential in the gateway's token store.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rebano/rebano-go/internal/gateway"
)

// Provider endpoints, relative to the provider base URL.
const (
	signInPath = "/v1/accounts/signInWithPassword"
	signUpPath = "/v1/accounts/signUp"
	lookupPath = "/v1/accounts/lookup"
)

// Account is what the provider returns for a signed-in or created user.
type Account struct {
	IDToken     string `json:"idToken,omitempty"`
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	ExpiresIn   string `json:"expiresIn,omitempty"`
}

// ProviderError is an {"error":{"message":CODE}} response.
type ProviderError struct {
	Status int
	Code   string
	Detail string
}

func (e *ProviderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("auth provider: %s: %s", e.Code, e.Detail)
	}
	return "auth provider: " + e.Code
}

// Client calls the three provider endpoints.
type Client struct {
	baseURL string
	http    gateway.Doer
}

// NewClient creates a Client for the provider at baseURL.
func NewClient(baseURL string, httpClient gateway.Doer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// SignIn exchanges an email and password for an ID token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Account, error) {
	var acct Account
	err := c.post(ctx, signInPath, map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &acct)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// SignUp creates an account.
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*Account, error) {
	var acct Account
	err := c.post(ctx, signUpPath, map[string]any{
		"email":             email,
		"password":          password,
		"displayName":       displayName,
		"returnSecureToken": true,
	}, &acct)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// Lookup returns the account an ID token belongs to.
func (c *Client) Lookup(ctx context.Context, idToken string) (*Account, error) {
	var resp struct {
		Users []Account `json:"users"`
	}
	if err := c.post(ctx, lookupPath, map[string]string{"idToken": idToken}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, &ProviderError{Status: http.StatusBadRequest, Code: "USER_NOT_FOUND"}
	}
	return &resp.Users[0], nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &gateway.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &gateway.NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrInvalidResponse, err)
	}
	return nil
}

// decodeError reads the provider error envelope. Messages such as
// "WEAK_PASSWORD : Password should be at least 6 characters" carry the code
// before the colon.
func decodeError(status int, raw []byte) error {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Message == "" {
		return &gateway.HTTPError{Status: status, Body: strings.TrimSpace(string(raw))}
	}
	code, detail, _ := strings.Cut(env.Error.Message, ":")
	return &ProviderError{
		Status: status,
		Code:   strings.TrimSpace(code),
		Detail: strings.TrimSpace(detail),
	}
}
