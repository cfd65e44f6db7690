// Package view turns records into markup fragments and keeps the rendered
// lists that controllers reconcile against.
package view

import (
	"github.com/rebano/rebano-go/internal/listcache"
)

// Fragment IDs reserved for the non-record parts of a list.
const (
	EmptyID = "empty"
	StatsID = "stats"
)

// Fragment is one rendered piece of a list, tagged with the identifier of
// the record it shows.
type Fragment struct {
	ID      string
	Content string
}

// Stat is one derived figure shown next to a list.
type Stat struct {
	Name  string
	Label string
	Value string
}

// Column describes one cell of a rendered record.
type Column struct {
	Label string
	Value func(listcache.Record) string
	// Variant, when set, renders the cell as a badge of the returned kind.
	Variant func(listcache.Record) string
}

// Action is a button bound to a record through delegated events.
type Action struct {
	Name  string
	Label string
}

// Layout is the per-domain description of how a record is shown.
type Layout struct {
	Name      string
	Columns   []Column
	Actions   []Action
	EmptyText string
	RowClass  func(listcache.Record) string
}

// Renderer maps data to markup. Implementations hold no list state.
type Renderer interface {
	Item(l Layout, r listcache.Record) (Fragment, error)
	Empty(l Layout) (Fragment, error)
	Stats(stats []Stat) (Fragment, error)
}

type cell struct {
	Label   string
	Text    string
	Variant string
}

func cells(l Layout, r listcache.Record) []cell {
	out := make([]cell, 0, len(l.Columns))
	for _, c := range l.Columns {
		v := cell{Label: c.Label}
		if c.Value != nil {
			v.Text = c.Value(r)
		}
		if c.Variant != nil {
			v.Variant = c.Variant(r)
		}
		out = append(out, v)
	}
	return out
}
