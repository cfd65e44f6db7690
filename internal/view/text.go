package view

import (
	"strings"

	"github.com/rebano/rebano-go/internal/listcache"
)

// Text renders one line per record for terminals.
type Text struct{}

func (Text) Item(l Layout, r listcache.Record) (Fragment, error) {
	id := r.ID()
	parts := []string{id}
	for _, c := range cells(l, r) {
		v := c.Text
		if c.Variant != "" {
			v += " [" + c.Variant + "]"
		}
		parts = append(parts, c.Label+": "+v)
	}
	return Fragment{ID: id, Content: strings.Join(parts, "  ")}, nil
}

func (Text) Empty(l Layout) (Fragment, error) {
	return Fragment{ID: EmptyID, Content: l.EmptyText}, nil
}

func (Text) Stats(stats []Stat) (Fragment, error) {
	parts := make([]string, len(stats))
	for i, s := range stats {
		parts[i] = s.Label + ": " + s.Value
	}
	return Fragment{ID: StatsID, Content: strings.Join(parts, " | ")}, nil
}
