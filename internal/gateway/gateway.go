// Package gateway is the single chokepoint through which domain data
// requests reach the remote farm API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rebano/rebano-go/internal/notify"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 10 << 20 // 10MB

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config wires a Gateway to its collaborators.
type Config struct {
	BaseURL  string
	Client   Doer
	Tokens   TokenStore
	Notifier notify.Notifier
	// OnSessionExpired is invoked when the credential is discarded, so the
	// caller can show the login surface.
	OnSessionExpired func()
	// Limiter throttles outgoing calls when set.
	Limiter *rate.Limiter
	Logger  *slog.Logger
	Now     func() time.Time
}

// Gateway attaches credentials to outgoing calls and classifies failures.
type Gateway struct {
	baseURL   string
	client    Doer
	tokens    TokenStore
	notifier  notify.Notifier
	onExpired func()
	limiter   *rate.Limiter
	log       *slog.Logger
	now       func() time.Time
}

// New creates a Gateway. Missing optional collaborators get no-op defaults.
func New(cfg Config) *Gateway {
	g := &Gateway{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		client:    cfg.Client,
		tokens:    cfg.Tokens,
		notifier:  cfg.Notifier,
		onExpired: cfg.OnSessionExpired,
		limiter:   cfg.Limiter,
		log:       cfg.Logger,
		now:       cfg.Now,
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: 30 * time.Second}
	}
	if g.tokens == nil {
		g.tokens = NewMemoryTokenStore()
	}
	if g.notifier == nil {
		g.notifier = notify.Discard
	}
	if g.onExpired == nil {
		g.onExpired = func() {}
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

type callOptions struct {
	method  string
	headers http.Header
	body    any
}

// CallOption customizes a single call.
type CallOption func(*callOptions)

// WithMethod sets the HTTP method. The default is GET.
func WithMethod(method string) CallOption {
	return func(o *callOptions) { o.method = method }
}

// WithBody sets the request body. Strings and byte slices are sent as-is,
// anything else is encoded as JSON.
func WithBody(body any) CallOption {
	return func(o *callOptions) { o.body = body }
}

// WithHeader adds a request header.
func WithHeader(key, value string) CallOption {
	return func(o *callOptions) { o.headers.Add(key, value) }
}

// Call sends a request to endpoint and returns the JSON response body
// unchanged. Empty bodies come back as JSON null.
func (g *Gateway) Call(ctx context.Context, endpoint string, opts ...CallOption) (json.RawMessage, error) {
	o := callOptions{method: http.MethodGet, headers: http.Header{}}
	for _, opt := range opts {
		opt(&o)
	}

	token, hasToken := g.tokens.Token()
	if hasToken && Expired(token, g.now()) {
		g.log.Info("credential expired before dispatch", "endpoint", endpoint)
		g.expireSession()
		return nil, ErrSessionExpired
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, g.fail(endpoint, &NetworkError{Err: err})
		}
	}

	req, err := g.newRequest(ctx, endpoint, o)
	if err != nil {
		return nil, g.fail(endpoint, err)
	}
	if hasToken && !isPublicEndpoint(endpoint) {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, g.fail(endpoint, &NetworkError{Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		g.log.Info("credential rejected by server", "endpoint", endpoint)
		g.expireSession()
		return nil, ErrSessionExpired
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, g.fail(endpoint, &NetworkError{Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, g.fail(endpoint, &HTTPError{Status: resp.StatusCode, Body: msg})
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		return nil, g.fail(endpoint, fmt.Errorf("%s: %w", endpoint, ErrInvalidResponse))
	}
	return json.RawMessage(body), nil
}

// Get is Call with GET.
func (g *Gateway) Get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	return g.Call(ctx, endpoint)
}

// Post is Call with POST and a JSON body.
func (g *Gateway) Post(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return g.Call(ctx, endpoint, WithMethod(http.MethodPost), WithBody(body))
}

// Put is Call with PUT and a JSON body.
func (g *Gateway) Put(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return g.Call(ctx, endpoint, WithMethod(http.MethodPut), WithBody(body))
}

// Delete is Call with DELETE.
func (g *Gateway) Delete(ctx context.Context, endpoint string) (json.RawMessage, error) {
	return g.Call(ctx, endpoint, WithMethod(http.MethodDelete))
}

func (g *Gateway) newRequest(ctx context.Context, endpoint string, o callOptions) (*http.Request, error) {
	var body io.Reader
	switch b := o.body.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	case []byte:
		body = bytes.NewReader(b)
	case json.RawMessage:
		body = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, o.method, g.baseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, values := range o.headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

func (g *Gateway) expireSession() {
	if err := g.tokens.ClearToken(); err != nil {
		g.log.Warn("clearing credential failed", "error", err)
	}
	g.onExpired()
}

// fail logs err and posts a banner for it, unless the caller itself
// cancelled the call.
func (g *Gateway) fail(endpoint string, err error) error {
	g.log.Error("api call failed", "endpoint", endpoint, "error", err)
	if !errors.Is(err, context.Canceled) {
		g.notifier.Notify(notify.KindDanger, "Error en la conexión: "+err.Error())
	}
	return err
}

// isPublicEndpoint reports whether endpoint is sent without credentials.
func isPublicEndpoint(endpoint string) bool {
	return strings.Contains(endpoint, "/auth/") || endpoint == "/health"
}
