package controller

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebano/rebano-go/internal/listcache"
	"github.com/rebano/rebano-go/internal/view"
)

func TestRegistry_SaleMarksAnimalSold(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)
	reg.Animals.replace([]listcache.Record{
		{"id": "a1", "earTag": "A-1", "status": "active"},
		{"id": "a2", "earTag": "A-2", "status": "active"},
	})
	f.caller.on(http.MethodPost, "/sales", `{"id":"s1","animalId":"a2","animalName":"Borrego A-2"}`)

	_, err := reg.Sales.Create(context.Background(), &SaleForm{AnimalEarTag: "A-2", SalePrice: 2400})
	require.NoError(t, err)

	a2, _ := reg.Animals.Find("a2")
	assert.Equal(t, "sold", a2.String("status"))
	a1, _ := reg.Animals.Find("a1")
	assert.Equal(t, "active", a1.String("status"))

	stats := map[string]string{}
	for _, s := range reg.Animals.Stats() {
		stats[s.Name] = s.Value
	}
	assert.Equal(t, "1", stats["sold"])
}

func TestRegistry_SaleByEarTagWithoutServerAnimalID(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)
	reg.Animals.replace([]listcache.Record{{"id": "a1", "earTag": "A-1", "status": "active"}})
	f.caller.on(http.MethodPost, "/sales", `{"id":"s1"}`)

	_, err := reg.Sales.Create(context.Background(), &SaleForm{AnimalEarTag: "A-1", SalePrice: 100})
	require.NoError(t, err)

	a1, _ := reg.Animals.Find("a1")
	assert.Equal(t, "sold", a1.String("status"))
}

func TestRegistry_DelegatedEvents(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)
	reg.Inventory.replace([]listcache.Record{
		{"id": "i1", "itemName": "Sal", "category": "suplemento", "currentStock": 2.0, "minStock": 1.0},
		{"id": "i2", "itemName": "Heno", "category": "alimento", "currentStock": 9.0, "minStock": 1.0},
	})
	f.caller.on(http.MethodPut, "/inventory/i1/stock", `{"previousStock":2,"newStock":0}`)

	ctx := context.Background()
	events := reg.Events()

	e, err := view.ParseEvent(Inventory, map[string]string{
		"data-action": "adjust-stock", "data-id": "i1", "data-operation": "subtract", "data-quantity": "5",
	})
	require.NoError(t, err)
	require.NoError(t, events.Dispatch(ctx, e))
	i1, _ := reg.Inventory.Find("i1")
	assert.Equal(t, 0.0, i1.Float("currentStock"))

	require.NoError(t, events.Dispatch(ctx, view.Event{List: Inventory, Action: "edit", ID: "i2", Values: map[string]string{"supplier": "Norte"}}))
	i2, _ := reg.Inventory.Find("i2")
	assert.Equal(t, "Norte", i2.String("supplier"))

	require.NoError(t, events.Dispatch(ctx, view.Event{List: Inventory, Action: "delete", ID: "i2"}))
	assert.Equal(t, []string{"i1"}, reg.Inventory.store.IDs())

	err = events.Dispatch(ctx, view.Event{List: Inventory, Action: "edit", ID: "missing"})
	assert.ErrorIs(t, err, listcache.ErrNotFound)

	err = events.Dispatch(ctx, view.Event{List: Sales, Action: "adjust-stock", ID: "i1"})
	assert.ErrorIs(t, err, view.ErrNoHandler)

	require.NoError(t, events.Dispatch(ctx, view.Event{List: Inventory, Action: "view", ID: "i1"}))
	assert.Contains(t, f.notes.messages[len(f.notes.messages)-1], "Sal")
}

func TestRegistry_Dashboard(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)
	f.caller.on(http.MethodGet, "/dashboard", `{"total_animals":4,"active_animals":3,"low_stock_items":1,"total_inventory":7}`)

	s, err := reg.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalAnimals: 4, ActiveAnimals: 3, LowStockItems: 1, TotalInventory: 7}, s)
	assert.Contains(t, f.doc.Stats(DashboardList).Content, `data-stat="low_stock_items"`)
}

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry(newFixture(t).deps)
	for _, d := range Domains() {
		c, ok := reg.Get(d.Name)
		require.True(t, ok, d.Name)
		assert.Equal(t, d.Name, c.Name())
	}
	_, ok := reg.Get("reports")
	assert.False(t, ok)
}

func TestFill(t *testing.T) {
	form := &FeedForm{}
	err := Fill(form, listcache.Record{"feedType": "Avena", "quantity": "mucho", "unit": "kg"}, map[string]string{"quantity": "12.5"})
	require.NoError(t, err)
	assert.Equal(t, FeedForm{FeedType: "Avena", Quantity: 12.5, Unit: "kg"}, *form)

	assert.Error(t, Fill(form, nil, map[string]string{"color": "rojo"}))
	assert.Error(t, Fill(form, nil, map[string]string{"quantity": "x"}))
	assert.Error(t, Fill(FeedForm{}, nil, nil))
}
