package view

import (
	"fmt"
	"io"
	"sync"
)

// Document is the rendered surface controllers patch. Each list is
// addressed by name and holds record fragments, an optional empty-state
// placeholder and a stats fragment.
type Document interface {
	SetList(list string, items []Fragment)
	Prepend(list string, f Fragment)
	Replace(list string, f Fragment) bool
	Remove(list, id string) bool
	ShowEmpty(list string, placeholder Fragment)
	SetStats(list string, f Fragment)
}

type region struct {
	items []Fragment
	empty *Fragment
	stats Fragment
}

// MemoryDocument keeps lists in memory. It is safe for concurrent use by
// controllers of different lists.
type MemoryDocument struct {
	mu      sync.Mutex
	regions map[string]*region
}

func NewMemoryDocument() *MemoryDocument {
	return &MemoryDocument{regions: make(map[string]*region)}
}

func (d *MemoryDocument) region(list string) *region {
	r, ok := d.regions[list]
	if !ok {
		r = &region{}
		d.regions[list] = r
	}
	return r
}

// SetList replaces every record fragment of list.
func (d *MemoryDocument) SetList(list string, items []Fragment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.region(list)
	r.items = append([]Fragment(nil), items...)
	r.empty = nil
}

// Prepend inserts f at the top of list, clearing the empty placeholder.
func (d *MemoryDocument) Prepend(list string, f Fragment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.region(list)
	r.empty = nil
	r.items = append([]Fragment{f}, r.items...)
}

// Replace swaps the fragment tagged f.ID in place. It reports false when
// no such fragment is shown.
func (d *MemoryDocument) Replace(list string, f Fragment) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.region(list)
	for i := range r.items {
		if r.items[i].ID == f.ID {
			r.items[i] = f
			return true
		}
	}
	return false
}

// Remove drops the fragment tagged id.
func (d *MemoryDocument) Remove(list, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.region(list)
	for i := range r.items {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return true
		}
	}
	return false
}

// ShowEmpty clears list and shows placeholder instead.
func (d *MemoryDocument) ShowEmpty(list string, placeholder Fragment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.region(list)
	r.items = nil
	r.empty = &placeholder
}

func (d *MemoryDocument) SetStats(list string, f Fragment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.region(list).stats = f
}

// Fragments returns the record fragments of list in display order.
func (d *MemoryDocument) Fragments(list string) []Fragment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Fragment(nil), d.region(list).items...)
}

// Placeholder returns the empty-state fragment when it is showing.
func (d *MemoryDocument) Placeholder(list string) (Fragment, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.region(list)
	if r.empty == nil {
		return Fragment{}, false
	}
	return *r.empty, true
}

func (d *MemoryDocument) Stats(list string) Fragment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.region(list).stats
}

// WriteList prints list to w: stats first, then the records or the
// placeholder.
func (d *MemoryDocument) WriteList(w io.Writer, list string) error {
	d.mu.Lock()
	r := *d.region(list)
	items := append([]Fragment(nil), r.items...)
	d.mu.Unlock()

	if r.stats.Content != "" {
		if _, err := fmt.Fprintln(w, r.stats.Content); err != nil {
			return err
		}
	}
	if r.empty != nil {
		_, err := fmt.Fprintln(w, r.empty.Content)
		return err
	}
	for _, f := range items {
		if _, err := fmt.Fprintln(w, f.Content); err != nil {
			return err
		}
	}
	return nil
}
