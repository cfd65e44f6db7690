// Package controller keeps one domain's local list in step with the remote
// store and patches the rendered document after every confirmed mutation.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rebano/rebano-go/internal/gateway"
	"github.com/rebano/rebano-go/internal/listcache"
	"github.com/rebano/rebano-go/internal/notify"
	"github.com/rebano/rebano-go/internal/validation"
	"github.com/rebano/rebano-go/internal/view"
)

// ValidationError lists every violated field of a rejected form.
type ValidationError = validation.Error

// Caller is the subset of the gateway controllers use.
type Caller interface {
	Get(ctx context.Context, endpoint string) (json.RawMessage, error)
	Post(ctx context.Context, endpoint string, body any) (json.RawMessage, error)
	Put(ctx context.Context, endpoint string, body any) (json.RawMessage, error)
	Delete(ctx context.Context, endpoint string) (json.RawMessage, error)
}

// Deps are the collaborators shared by every controller.
type Deps struct {
	Caller    Caller
	Document  view.Document
	Renderer  view.Renderer
	Notifier  notify.Notifier
	Formatter *view.Formatter
	Logger    *slog.Logger
	// Strict makes Load fail on unrecognized list envelopes instead of
	// showing an empty list.
	Strict bool
	Now    func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Document == nil {
		d.Document = view.NewMemoryDocument()
	}
	if d.Renderer == nil {
		d.Renderer = view.Text{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.Discard
	}
	if d.Formatter == nil {
		d.Formatter = view.MustFormatter("es-MX", "MXN")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Domain configures a Controller for one collection.
type Domain struct {
	Name     string
	Endpoint string
	// Label names the domain in banners.
	Label  string
	Layout func(*view.Formatter) view.Layout
	Stats  func(items []listcache.Record, now time.Time, f *view.Formatter) []view.Stat
	// Fallback, when set, supplies demonstration data if loading fails
	// because the backend is missing or broken.
	Fallback func(now time.Time) []listcache.Record
	NewForm  func() any
}

// Controller owns the local list of one domain. It must be used by one
// goroutine at a time.
type Controller struct {
	domain Domain
	deps   Deps
	layout view.Layout
	log    *slog.Logger
	store  *listcache.Store

	onCreated []func(ctx context.Context, r listcache.Record)
}

// New creates a controller for domain.
func New(domain Domain, deps Deps) *Controller {
	deps = deps.withDefaults()
	return &Controller{
		domain: domain,
		deps:   deps,
		layout: domain.Layout(deps.Formatter),
		log:    deps.Logger.With("domain", domain.Name),
		store:  listcache.New(),
	}
}

func (c *Controller) Name() string { return c.domain.Name }

// NewForm returns an empty form for the domain.
func (c *Controller) NewForm() any { return c.domain.NewForm() }

// OnCreated registers fn to run after a record was created remotely and
// inserted locally.
func (c *Controller) OnCreated(fn func(ctx context.Context, r listcache.Record)) {
	c.onCreated = append(c.onCreated, fn)
}

// Items returns a copy of the local list.
func (c *Controller) Items() []listcache.Record { return c.store.Items() }

// Find returns the local record identified by id.
func (c *Controller) Find(id string) (listcache.Record, bool) { return c.store.Find(id) }

// Stats derives the domain figures from the local list.
func (c *Controller) Stats() []view.Stat {
	if c.domain.Stats == nil {
		return nil
	}
	return c.domain.Stats(c.store.Items(), c.deps.Now(), c.deps.Formatter)
}

// Load fetches the full list, replaces the local copy and renders it.
func (c *Controller) Load(ctx context.Context) error {
	raw, err := c.deps.Caller.Get(ctx, c.domain.Endpoint)
	if err != nil {
		if c.domain.Fallback != nil && degraded(err) {
			c.log.Warn("backend unavailable, showing demonstration data", "error", err)
			c.deps.Notifier.Notify(notify.KindInfo, "Usando datos de demostración")
			c.replace(c.domain.Fallback(c.deps.Now()))
			return nil
		}
		return fmt.Errorf("loading %s: %w", c.domain.Name, err)
	}

	items, err := DecodeList(raw, c.domain.Name)
	if err != nil {
		if c.deps.Strict {
			return fmt.Errorf("loading %s: %w", c.domain.Name, err)
		}
		c.log.Warn("unexpected list response, showing empty list", "error", err)
		items = nil
	}
	c.replace(items)
	c.log.Debug("list loaded", "count", len(items))
	return nil
}

// degraded reports whether err means the backend is missing or failing,
// as opposed to the caller being offline or unauthenticated.
func degraded(err error) bool {
	status := gateway.StatusOf(err)
	return status == http.StatusNotFound || status >= 500
}

func (c *Controller) replace(items []listcache.Record) {
	c.store.Replace(items)
	c.renderList()
}

// Create validates form, sends it and inserts the confirmed record.
func (c *Controller) Create(ctx context.Context, form any) (listcache.Record, error) {
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	fields, err := listcache.FromValue(form)
	if err != nil {
		return nil, fmt.Errorf("encoding form: %w", err)
	}

	raw, err := c.deps.Caller.Post(ctx, c.domain.Endpoint, form)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", c.domain.Name, err)
	}

	r := c.InsertLocal(fields.Merge(responseRecord(raw)))
	c.deps.Notifier.Notify(notify.KindSuccess, c.label()+": registro guardado")
	for _, fn := range c.onCreated {
		fn(ctx, r)
	}
	return r, nil
}

// Update validates form, sends it and merges the change into the local
// record identified by id.
func (c *Controller) Update(ctx context.Context, id string, form any) (listcache.Record, error) {
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	patch, err := listcache.FromValue(form)
	if err != nil {
		return nil, fmt.Errorf("encoding form: %w", err)
	}

	raw, err := c.deps.Caller.Put(ctx, c.domain.Endpoint+"/"+id, form)
	if err != nil {
		return nil, fmt.Errorf("updating %s %s: %w", c.domain.Name, id, err)
	}

	resp := responseRecord(raw)
	delete(resp, listcache.IDField)
	delete(resp, listcache.LegacyIDField)

	r, err := c.UpdateLocal(id, patch.Merge(resp))
	if err != nil {
		// The server accepted the change; the list was stale.
		c.log.Warn("updated record missing from local list", "id", id)
		return nil, err
	}
	c.deps.Notifier.Notify(notify.KindSuccess, c.label()+": registro actualizado")
	return r, nil
}

// Delete removes id remotely, then locally.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if _, err := c.deps.Caller.Delete(ctx, c.domain.Endpoint+"/"+id); err != nil {
		return fmt.Errorf("deleting %s %s: %w", c.domain.Name, id, err)
	}
	c.RemoveLocal(id)
	c.deps.Notifier.Notify(notify.KindSuccess, c.label()+": registro eliminado")
	return nil
}

// InsertLocal puts r at the top of the list and renders only its fragment.
// A record without identifier gets a local fallback one.
func (c *Controller) InsertLocal(r listcache.Record) listcache.Record {
	r = r.Clone()
	if r.ID() == "" {
		r[listcache.IDField] = listcache.FallbackID()
		c.log.Warn("created record has no server id", "id", r.ID())
	}
	c.store.Prepend(r)

	if f, ok := c.renderItem(r); ok {
		c.deps.Document.Prepend(c.domain.Name, f)
	}
	c.renderStats()
	return r
}

// UpdateLocal merges patch into the record identified by id and replaces
// its fragment.
func (c *Controller) UpdateLocal(id string, patch listcache.Record) (listcache.Record, error) {
	r, err := c.store.Merge(id, patch)
	if err != nil {
		return nil, err
	}
	if f, ok := c.renderItem(r); ok {
		if !c.deps.Document.Replace(c.domain.Name, f) {
			c.renderList()
			return r, nil
		}
	}
	c.renderStats()
	return r, nil
}

// RemoveLocal drops every record matching id under either alias and
// reports how many were removed.
func (c *Controller) RemoveLocal(id string) int {
	tags := map[string]struct{}{id: {}}
	for _, r := range c.store.Items() {
		if r.Matches(id) {
			tags[r.ID()] = struct{}{}
		}
	}
	for tag := range tags {
		c.deps.Document.Remove(c.domain.Name, tag)
	}

	n := c.store.Remove(id)
	if c.store.Len() == 0 {
		c.showEmpty()
	}
	c.renderStats()
	return n
}

// Refresh re-renders the list and stats from the local copy.
func (c *Controller) Refresh() { c.renderList() }

func (c *Controller) renderList() {
	items := c.store.Items()
	if len(items) == 0 {
		c.showEmpty()
		c.renderStats()
		return
	}

	frags := make([]view.Fragment, 0, len(items))
	for _, r := range items {
		if f, ok := c.renderItem(r); ok {
			frags = append(frags, f)
		}
	}
	c.deps.Document.SetList(c.domain.Name, frags)
	c.renderStats()
}

func (c *Controller) renderItem(r listcache.Record) (view.Fragment, bool) {
	f, err := c.deps.Renderer.Item(c.layout, r)
	if err != nil {
		c.log.Error("rendering record failed", "id", r.ID(), "error", err)
		return view.Fragment{}, false
	}
	return f, true
}

func (c *Controller) showEmpty() {
	f, err := c.deps.Renderer.Empty(c.layout)
	if err != nil {
		c.log.Error("rendering empty state failed", "error", err)
		return
	}
	c.deps.Document.ShowEmpty(c.domain.Name, f)
}

func (c *Controller) renderStats() {
	stats := c.Stats()
	if stats == nil {
		return
	}
	f, err := c.deps.Renderer.Stats(stats)
	if err != nil {
		c.log.Error("rendering stats failed", "error", err)
		return
	}
	c.deps.Document.SetStats(c.domain.Name, f)
}

func (c *Controller) label() string {
	if c.domain.Label != "" {
		return c.domain.Label
	}
	return c.domain.Name
}

// responseRecord reads the object a mutation returned. Anything else
// contributes no fields.
func responseRecord(raw json.RawMessage) listcache.Record {
	r, err := listcache.FromJSON(raw)
	if err != nil {
		return listcache.Record{}
	}
	delete(r, "message")
	return r
}

// IsValidation reports whether err is a rejected form.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
