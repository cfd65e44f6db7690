package listcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *Store {
	s := New()
	s.Replace([]Record{
		{"id": "a1", "itemName": "Heno", "currentStock": 10.0},
		{"_id": "b2", "itemName": "Vacuna", "currentStock": 2.0},
		{"id": 7.0, "itemName": "Sal mineral"},
	})
	return s
}

func TestRecord_IDAliases(t *testing.T) {
	assert.Equal(t, "a1", Record{"id": "a1", "_id": "zz"}.ID())
	assert.Equal(t, "b2", Record{"_id": "b2"}.ID())
	assert.Equal(t, "7", Record{"id": 7.0}.ID())
	assert.Equal(t, "", Record{"name": "x"}.ID())

	r := Record{"id": "new", "_id": "old"}
	assert.True(t, r.Matches("new"))
	assert.True(t, r.Matches("old"))
	assert.False(t, r.Matches(""))
}

func TestRecord_Float(t *testing.T) {
	r := Record{"a": 2.5, "b": "3.25", "c": "n/a", "d": 4}
	assert.Equal(t, 2.5, r.Float("a"))
	assert.Equal(t, 3.25, r.Float("b"))
	assert.Equal(t, 0.0, r.Float("c"))
	assert.Equal(t, 4.0, r.Float("d"))
	assert.Equal(t, 0.0, r.Float("missing"))
}

func TestStore_InsertThenRemoveRestoresIDs(t *testing.T) {
	s := seeded()
	before := s.IDs()

	s.Prepend(Record{"id": "c3", "itemName": "Maíz"})
	require.Equal(t, "c3", s.Items()[0].ID())

	removed := s.Remove("c3")
	assert.Equal(t, 1, removed)
	assert.Equal(t, before, s.IDs())
}

func TestStore_RemoveMatchesLegacyAlias(t *testing.T) {
	s := seeded()

	assert.Equal(t, 1, s.Remove("b2"))
	assert.Equal(t, []string{"a1", "7"}, s.IDs())
	assert.Equal(t, 0, s.Remove("b2"))
}

func TestStore_RemoveEveryDuplicate(t *testing.T) {
	s := New()
	s.Replace([]Record{{"id": "x"}, {"_id": "x"}, {"id": "y"}})

	assert.Equal(t, 2, s.Remove("x"))
	assert.Equal(t, []string{"y"}, s.IDs())
}

func TestStore_MergePatchWins(t *testing.T) {
	s := seeded()

	merged, err := s.Merge("a1", Record{"currentStock": 4.0, "unit": "pacas"})
	require.NoError(t, err)

	want := Record{"id": "a1", "itemName": "Heno", "currentStock": 4.0, "unit": "pacas"}
	assert.Equal(t, want, merged)

	got, ok := s.Find("a1")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestStore_MergeUnknownID(t *testing.T) {
	s := seeded()
	_, err := s.Merge("nope", Record{"x": 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ItemsAreCopies(t *testing.T) {
	s := seeded()
	items := s.Items()
	items[0]["itemName"] = "changed"

	got, _ := s.Find("a1")
	assert.Equal(t, "Heno", got["itemName"])
}

func TestFallbackID(t *testing.T) {
	id := FallbackID()
	assert.True(t, IsFallbackID(id))
	assert.NotEqual(t, id, FallbackID())
	assert.False(t, IsFallbackID("a1"))
}

func TestFromJSON(t *testing.T) {
	r, err := FromJSON([]byte(`{"id":"a","price":12.5}`))
	require.NoError(t, err)
	assert.Equal(t, "a", r.ID())
	assert.Equal(t, 12.5, r.Float("price"))

	_, err = FromJSON([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = FromJSON([]byte(`null`))
	assert.Error(t, err)
}
