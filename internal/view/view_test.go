package view

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebano/rebano-go/internal/listcache"
)

var stockLayout = Layout{
	Name: "inventory",
	Columns: []Column{
		{Label: "Item", Value: func(r listcache.Record) string { return r.String("itemName") }},
		{
			Label: "Stock",
			Value: func(r listcache.Record) string { return r.String("currentStock") },
			Variant: func(r listcache.Record) string {
				if r.Float("currentStock") <= r.Float("minStock") {
					return "low"
				}
				return "ok"
			},
		},
	},
	Actions:   []Action{{Name: "delete", Label: "Eliminar"}},
	EmptyText: "No hay items en el inventario",
}

func TestHTML_ItemEscapesAndTagsRecord(t *testing.T) {
	r := listcache.Record{"id": "a1", "itemName": `<script>alert("x")</script>`, "currentStock": 2.0, "minStock": 5.0}

	f, err := HTML{}.Item(stockLayout, r)
	require.NoError(t, err)

	assert.Equal(t, "a1", f.ID)
	assert.NotContains(t, f.Content, "<script>")
	assert.Contains(t, f.Content, "&lt;script&gt;")
	assert.Contains(t, f.Content, `data-variant="low"`)
	assert.Contains(t, f.Content, `data-action="delete" data-id="a1"`)
	assert.NotContains(t, f.Content, "onclick")
}

func TestHTML_EmptyAndStats(t *testing.T) {
	f, err := HTML{}.Empty(stockLayout)
	require.NoError(t, err)
	assert.Equal(t, EmptyID, f.ID)
	assert.Contains(t, f.Content, `colspan="3"`)
	assert.Contains(t, f.Content, "No hay items en el inventario")

	f, err = HTML{}.Stats([]Stat{{Name: "low", Label: "Stock bajo", Value: "1"}})
	require.NoError(t, err)
	assert.Equal(t, StatsID, f.ID)
	assert.Contains(t, f.Content, `data-stat="low"`)
}

func TestText_Item(t *testing.T) {
	r := listcache.Record{"_id": "b2", "itemName": "Sal mineral", "currentStock": 9.0, "minStock": 3.0}
	f, err := Text{}.Item(stockLayout, r)
	require.NoError(t, err)
	assert.Equal(t, "b2", f.ID)
	assert.Equal(t, "b2  Item: Sal mineral  Stock: 9 [ok]", f.Content)
}

func TestMemoryDocument_PrependClearsPlaceholder(t *testing.T) {
	d := NewMemoryDocument()
	d.ShowEmpty("sales", Fragment{ID: EmptyID, Content: "vacío"})

	_, showing := d.Placeholder("sales")
	require.True(t, showing)

	d.Prepend("sales", Fragment{ID: "s1", Content: "one"})
	d.Prepend("sales", Fragment{ID: "s2", Content: "two"})

	_, showing = d.Placeholder("sales")
	assert.False(t, showing)
	assert.Equal(t, []Fragment{{ID: "s2", Content: "two"}, {ID: "s1", Content: "one"}}, d.Fragments("sales"))
}

func TestMemoryDocument_ReplaceAndRemove(t *testing.T) {
	d := NewMemoryDocument()
	d.SetList("feeds", []Fragment{{ID: "f1", Content: "a"}, {ID: "f2", Content: "b"}})

	assert.True(t, d.Replace("feeds", Fragment{ID: "f2", Content: "B"}))
	assert.False(t, d.Replace("feeds", Fragment{ID: "f9", Content: "?"}))
	assert.True(t, d.Remove("feeds", "f1"))
	assert.False(t, d.Remove("feeds", "f1"))

	assert.Equal(t, []Fragment{{ID: "f2", Content: "B"}}, d.Fragments("feeds"))
	assert.Empty(t, d.Fragments("animals"), "lists are independent")
}

func TestMemoryDocument_WriteList(t *testing.T) {
	d := NewMemoryDocument()
	d.SetStats("animals", Fragment{ID: StatsID, Content: "Total: 0"})
	d.ShowEmpty("animals", Fragment{ID: EmptyID, Content: "No hay animales"})

	var buf bytes.Buffer
	require.NoError(t, d.WriteList(&buf, "animals"))
	assert.Equal(t, "Total: 0\nNo hay animales\n", buf.String())
}

func TestDispatcher(t *testing.T) {
	d := NewDispatcher()
	var got Event
	d.On("inventory", "delete", func(_ context.Context, e Event) error {
		got = e
		return nil
	})

	e, err := ParseEvent("inventory", map[string]string{"data-action": "delete", "data-id": "i7"})
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(context.Background(), e))
	assert.Equal(t, Event{List: "inventory", Action: "delete", ID: "i7"}, got)

	err = d.Dispatch(context.Background(), Event{List: "inventory", Action: "edit"})
	assert.True(t, errors.Is(err, ErrNoHandler))

	_, err = ParseEvent("inventory", map[string]string{"data-id": "i7"})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	e, err = ParseEvent("inventory", map[string]string{
		"data-action": "adjust-stock", "data-id": "i7", "data-op": "add", "class": "btn",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"op": "add"}, e.Values)
}

func TestFormatter(t *testing.T) {
	f, err := NewFormatter("es-MX", "")
	require.NoError(t, err)

	money := f.Currency(12.5)
	assert.True(t, strings.HasPrefix(money, "$"), money)
	assert.Contains(t, money, "12")
	assert.Contains(t, money, "50")
	assert.True(t, strings.HasPrefix(f.Currency(-3), "-$"))

	assert.Equal(t, "17/10/2026", f.Date("2026-10-17"))
	assert.Equal(t, "5/3/2026", f.Date("2026-03-05T10:00:00Z"))
	assert.Equal(t, NotAvailable, f.Date(""))
	assert.Equal(t, "ayer", f.Date("ayer"))

	_, err = NewFormatter("es-MX", "NOPE")
	assert.Error(t, err)
}
