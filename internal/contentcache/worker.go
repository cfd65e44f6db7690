// Package contentcache is the installable content cache: a versioned set of
// captured responses that serves the app shell and static assets, falling
// back to the network and never touching API or auth traffic.
package contentcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotActive     = errors.New("worker is not active")
	ErrInstallFailed = errors.New("install failed")
)

// DefaultBypass lists the URL segments whose traffic is never cached.
var DefaultBypass = []string{"/api/", "/auth/"}

// State is the lifecycle position of a Worker.
type State int

const (
	StateInstalling State = iota
	// StateInstalled is a worker that finished installing and waits for
	// the previous generation to release its clients.
	StateInstalled
	StateActivating
	StateActive
	// StateRedundant is a worker that failed to install or was replaced.
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateRedundant:
		return "redundant"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Doer performs network requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes one cache generation.
type Config struct {
	// Version names the bucket; bumping it is the upgrade mechanism.
	Version string
	// Origin is the scheme and host the worker serves; responses from
	// other origins are never stored by fetch.
	Origin *url.URL
	// Manifest lists the assets stored at install time. Relative entries
	// resolve against Origin.
	Manifest []string
	// Bypass overrides DefaultBypass.
	Bypass []string
	// WaitForClients keeps a freshly installed worker waiting while the
	// previous generation still controls clients. The default is to
	// activate immediately.
	WaitForClients bool
}

// Worker serves fetches for one cache generation.
type Worker struct {
	cfg     Config
	storage Storage
	network Doer
	log     *slog.Logger
	now     func() time.Time

	mu          sync.Mutex
	state       State
	bucket      Bucket
	skipWaiting bool
}

// NewWorker creates a worker in the installing state.
func NewWorker(cfg Config, storage Storage, network Doer, logger *slog.Logger) *Worker {
	if len(cfg.Bypass) == 0 {
		cfg.Bypass = DefaultBypass
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cfg:         cfg,
		storage:     storage,
		network:     network,
		log:         logger.With("cache", cfg.Version),
		now:         time.Now,
		state:       StateInstalling,
		skipWaiting: !cfg.WaitForClients,
	}
}

// Version returns the cache generation tag.
func (w *Worker) Version() string { return w.cfg.Version }

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// SkipWaiting marks the worker to activate without waiting for clients.
func (w *Worker) SkipWaiting() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.skipWaiting = true
}

func (w *Worker) skipsWaiting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.skipWaiting
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
}

// Install opens the versioned bucket and stores every manifest asset. The
// assets are stored only if all of them were fetched successfully.
func (w *Worker) Install(ctx context.Context) error {
	if st := w.State(); st != StateInstalling {
		return fmt.Errorf("install in state %s: %w", st, ErrInstallFailed)
	}

	bucket, err := w.storage.Open(ctx, w.cfg.Version)
	if err != nil {
		w.setState(StateRedundant)
		return fmt.Errorf("%w: %v", ErrInstallFailed, err)
	}

	type captured struct {
		key   string
		entry *Entry
	}
	entries := make([]captured, 0, len(w.cfg.Manifest))

	for _, raw := range w.cfg.Manifest {
		target, err := w.resolve(raw)
		if err != nil {
			w.setState(StateRedundant)
			return fmt.Errorf("%w: manifest entry %q: %v", ErrInstallFailed, raw, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			w.setState(StateRedundant)
			return fmt.Errorf("%w: %v", ErrInstallFailed, err)
		}
		resp, err := w.network.Do(req)
		if err != nil {
			w.setState(StateRedundant)
			return fmt.Errorf("%w: fetching %s: %v", ErrInstallFailed, target, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			w.setState(StateRedundant)
			return fmt.Errorf("%w: fetching %s: status %d", ErrInstallFailed, target, resp.StatusCode)
		}

		entry, _, err := capture(req, resp, w.now())
		if err != nil {
			w.setState(StateRedundant)
			return fmt.Errorf("%w: %v", ErrInstallFailed, err)
		}
		entries = append(entries, captured{key: Key(http.MethodGet, req.URL), entry: entry})
	}

	for _, c := range entries {
		if err := bucket.Put(ctx, c.key, c.entry); err != nil {
			w.setState(StateRedundant)
			return fmt.Errorf("%w: storing %s: %v", ErrInstallFailed, c.entry.URL, err)
		}
	}

	w.mu.Lock()
	w.bucket = bucket
	w.state = StateInstalled
	w.mu.Unlock()

	w.log.Info("content cache installed", "assets", len(entries))
	return nil
}

// Activate deletes every bucket that belongs to another generation and
// makes the worker active.
func (w *Worker) Activate(ctx context.Context) error {
	if st := w.State(); st != StateInstalled {
		return fmt.Errorf("activate in state %s", st)
	}
	w.setState(StateActivating)

	names, err := w.storage.Names(ctx)
	if err != nil {
		return fmt.Errorf("listing buckets: %w", err)
	}
	for _, name := range names {
		if name == w.cfg.Version {
			continue
		}
		if _, err := w.storage.Delete(ctx, name); err != nil {
			return fmt.Errorf("deleting bucket %q: %w", name, err)
		}
		w.log.Info("deleted stale content cache", "bucket", name)
	}

	w.setState(StateActive)
	w.log.Info("content cache active")
	return nil
}

// resume makes the worker active on an existing bucket without fetching
// the manifest again, as after a process restart.
func (w *Worker) resume(ctx context.Context) error {
	bucket, err := w.storage.Open(ctx, w.cfg.Version)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.bucket = bucket
	w.state = StateActive
	w.mu.Unlock()
	return nil
}

func (w *Worker) retire() {
	w.setState(StateRedundant)
}

// Fetch answers req from the cache or the network.
//
// Requests whose URL contains a bypass segment go straight to the network
// and are never read from or written to the cache. Other GET requests are
// matched by exact URL; a miss is fetched and stored when the response is
// a same-origin 200.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	w.mu.Lock()
	state, bucket := w.state, w.bucket
	w.mu.Unlock()
	if state != StateActive {
		return nil, ErrNotActive
	}

	req = req.WithContext(ctx)
	if w.bypassed(req.URL) || req.Method != http.MethodGet {
		return w.network.Do(req)
	}

	key := Key(req.Method, req.URL)
	entry, ok, err := bucket.Match(ctx, key)
	if err != nil {
		w.log.Warn("cache lookup failed", "url", req.URL.String(), "error", err)
	}
	if ok {
		return entry.Response(req), nil
	}

	resp, err := w.network.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || !w.sameOrigin(req.URL) {
		return resp, nil
	}

	entry, out, err := capture(req, resp, w.now())
	if err != nil {
		return nil, err
	}
	if err := bucket.Put(ctx, key, entry); err != nil {
		w.log.Warn("cache store failed", "url", req.URL.String(), "error", err)
	}
	return out, nil
}

// Cached reports whether the active bucket holds a response for u.
func (w *Worker) Cached(ctx context.Context, u *url.URL) (bool, error) {
	w.mu.Lock()
	bucket := w.bucket
	w.mu.Unlock()
	if bucket == nil {
		return false, nil
	}
	_, ok, err := bucket.Match(ctx, Key(http.MethodGet, u))
	return ok, err
}

func (w *Worker) bypassed(u *url.URL) bool {
	s := u.String()
	for _, seg := range w.cfg.Bypass {
		if strings.Contains(s, seg) {
			return true
		}
	}
	return false
}

func (w *Worker) sameOrigin(u *url.URL) bool {
	if w.cfg.Origin == nil {
		return false
	}
	return strings.EqualFold(u.Scheme, w.cfg.Origin.Scheme) && strings.EqualFold(u.Host, w.cfg.Origin.Host)
}

func (w *Worker) resolve(raw string) (*url.URL, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if ref.IsAbs() {
		return ref, nil
	}
	if w.cfg.Origin == nil {
		return nil, errors.New("relative manifest entry without origin")
	}
	return w.cfg.Origin.ResolveReference(ref), nil
}
