package contentcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// Message is the control envelope a page posts to the worker.
type Message struct {
	Action string `json:"action"`
}

// ActionSkipWaiting forces a waiting worker to activate.
const ActionSkipWaiting = "skipWaiting"

// ParseMessage decodes a control message.
func ParseMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}
	return m, nil
}

// Container is the registration for one origin: the active and waiting
// workers plus the clients (pages) they control.
type Container struct {
	storage Storage
	network Doer
	log     *slog.Logger

	mu      sync.Mutex
	active  *Worker
	waiting *Worker
	clients map[string]*Worker
}

// NewContainer creates an empty registration. network must not route
// through the container itself.
func NewContainer(storage Storage, network Doer, logger *slog.Logger) *Container {
	if logger == nil {
		logger = slog.Default()
	}
	return &Container{
		storage: storage,
		network: network,
		log:     logger,
		clients: make(map[string]*Worker),
	}
}

// Register installs a worker for cfg.Version. An already active worker of
// the same version is returned as is. Unless cfg.WaitForClients is set the
// new worker activates immediately and claims every client.
func (c *Container) Register(ctx context.Context, cfg Config) (*Worker, error) {
	c.mu.Lock()
	if c.active != nil && c.active.Version() == cfg.Version {
		defer c.mu.Unlock()
		return c.active, nil
	}
	if c.waiting != nil && c.waiting.Version() == cfg.Version {
		defer c.mu.Unlock()
		return c.waiting, nil
	}
	c.mu.Unlock()

	// The current generation keeps serving while the new one installs.
	w := NewWorker(cfg, c.storage, c.network, c.log)
	if err := w.Install(ctx); err != nil {
		c.log.Error("content cache install failed", "version", cfg.Version, "error", err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if w.skipsWaiting() || c.active == nil || len(c.clients) == 0 {
		if err := c.activateLocked(ctx, w); err != nil {
			return nil, err
		}
		return w, nil
	}

	if c.waiting != nil {
		c.waiting.retire()
	}
	c.waiting = w
	c.log.Info("content cache waiting", "version", cfg.Version, "clients", len(c.clients))
	return w, nil
}

// Resume activates cfg.Version on its existing bucket without fetching the
// manifest again. It reports false when no such bucket exists.
func (c *Container) Resume(ctx context.Context, cfg Config) (*Worker, bool, error) {
	ok, err := c.storage.Has(ctx, cfg.Version)
	if err != nil || !ok {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && c.active.Version() == cfg.Version {
		return c.active, true, nil
	}

	w := NewWorker(cfg, c.storage, c.network, c.log)
	if err := w.resume(ctx); err != nil {
		return nil, false, err
	}
	if c.active != nil {
		c.active.retire()
	}
	c.active = w
	c.claimLocked(w)
	return w, true, nil
}

// PostMessage delivers a control message to the registration.
func (c *Container) PostMessage(ctx context.Context, msg Message) error {
	switch msg.Action {
	case ActionSkipWaiting:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.waiting == nil {
			return nil
		}
		w := c.waiting
		w.SkipWaiting()
		return c.activateLocked(ctx, w)
	default:
		return fmt.Errorf("unknown action %q", msg.Action)
	}
}

// Attach opens a client and puts it under the active worker, if any.
func (c *Container) Attach(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[clientID] = c.active
}

// Detach closes a client. When the last client goes away a waiting worker
// takes over.
func (c *Container) Detach(ctx context.Context, clientID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.clients, clientID)
	if len(c.clients) == 0 && c.waiting != nil {
		return c.activateLocked(ctx, c.waiting)
	}
	return nil
}

// Controller returns the worker controlling clientID, or nil.
func (c *Container) Controller(clientID string) *Worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clients[clientID]
}

// Active returns the active worker, or nil.
func (c *Container) Active() *Worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Waiting returns the installed worker waiting to activate, or nil.
func (c *Container) Waiting() *Worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting
}

// Fetch sends req on behalf of clientID through its controlling worker.
// Uncontrolled clients go to the network directly.
func (c *Container) Fetch(ctx context.Context, clientID string, req *http.Request) (*http.Response, error) {
	w := c.Controller(clientID)
	if w == nil {
		return c.network.Do(req.WithContext(ctx))
	}
	return w.Fetch(ctx, req)
}

func (c *Container) activateLocked(ctx context.Context, w *Worker) error {
	if err := w.Activate(ctx); err != nil {
		w.retire()
		if c.waiting == w {
			c.waiting = nil
		}
		return err
	}
	if c.active != nil && c.active != w {
		c.active.retire()
	}
	c.active = w
	// Activation purged every other bucket, so an older waiting worker
	// can no longer serve.
	if c.waiting != nil && c.waiting != w {
		c.waiting.retire()
	}
	c.waiting = nil
	c.claimLocked(w)
	return nil
}

func (c *Container) claimLocked(w *Worker) {
	for id := range c.clients {
		c.clients[id] = w
	}
}
