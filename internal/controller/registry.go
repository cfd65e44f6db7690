package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rebano/rebano-go/internal/listcache"
	"github.com/rebano/rebano-go/internal/notify"
	"github.com/rebano/rebano-go/internal/view"
)

// DashboardList is the document list the dashboard summary renders into.
const DashboardList = "dashboard"

// Summary is the dashboard payload.
type Summary struct {
	TotalAnimals   int `json:"total_animals"`
	ActiveAnimals  int `json:"active_animals"`
	LowStockItems  int `json:"low_stock_items"`
	TotalInventory int `json:"total_inventory"`
}

// Registry holds one controller per domain and the event bindings between
// rendered actions and controller operations.
type Registry struct {
	Animals   *Controller
	Inventory *InventoryController
	Sales     *Controller
	Purchases *Controller
	Feeds     *Controller

	deps   Deps
	events *view.Dispatcher
}

// NewRegistry creates every controller over the same collaborators.
func NewRegistry(deps Deps) *Registry {
	deps = deps.withDefaults()
	r := &Registry{
		Animals:   New(AnimalDomain(), deps),
		Inventory: NewInventory(deps),
		Sales:     New(SalesDomain(), deps),
		Purchases: New(PurchasesDomain(), deps),
		Feeds:     New(FeedsDomain(), deps),
		deps:      deps,
		events:    view.NewDispatcher(),
	}
	r.Sales.OnCreated(r.markSold)
	r.bind()
	return r
}

// All returns the controllers in navigation order.
func (r *Registry) All() []*Controller {
	return []*Controller{r.Animals, r.Inventory.Controller, r.Sales, r.Purchases, r.Feeds}
}

// Get returns the controller for a domain name.
func (r *Registry) Get(name string) (*Controller, bool) {
	for _, c := range r.All() {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Events returns the dispatcher delegated UI events go through.
func (r *Registry) Events() *view.Dispatcher { return r.events }

// Dashboard fetches the summary figures and renders them.
func (r *Registry) Dashboard(ctx context.Context) (Summary, error) {
	raw, err := r.deps.Caller.Get(ctx, "/dashboard")
	if err != nil {
		return Summary{}, fmt.Errorf("loading dashboard: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return Summary{}, fmt.Errorf("decoding dashboard: %w", err)
	}

	f, err := r.deps.Renderer.Stats([]view.Stat{
		{Name: "total_animals", Label: "Total de animales", Value: strconv.Itoa(s.TotalAnimals)},
		{Name: "active_animals", Label: "Animales activos", Value: strconv.Itoa(s.ActiveAnimals)},
		{Name: "low_stock_items", Label: "Items con stock bajo", Value: strconv.Itoa(s.LowStockItems)},
		{Name: "total_inventory", Label: "Items en inventario", Value: strconv.Itoa(s.TotalInventory)},
	})
	if err != nil {
		return s, err
	}
	r.deps.Document.SetStats(DashboardList, f)
	return s, nil
}

// markSold reflects a confirmed sale in the local animal list. The server
// already marked the animal sold in the same transaction.
func (r *Registry) markSold(_ context.Context, sale listcache.Record) {
	id := sale.String("animalId")
	if id == "" {
		tag := sale.String("animalEarTag")
		for _, a := range r.Animals.Items() {
			if tag != "" && a.String("earTag") == tag {
				id = a.ID()
				break
			}
		}
	}
	if id == "" {
		return
	}
	if _, err := r.Animals.UpdateLocal(id, listcache.Record{"status": "sold"}); err != nil && !errors.Is(err, listcache.ErrNotFound) {
		r.deps.Logger.Warn("marking animal sold failed", "animal", id, "error", err)
	}
}

func (r *Registry) bind() {
	for _, c := range r.All() {
		list := c.Name()
		r.events.On(list, "reload", func(ctx context.Context, _ view.Event) error {
			return c.Load(ctx)
		})
		r.events.On(list, "delete", func(ctx context.Context, e view.Event) error {
			return c.Delete(ctx, e.ID)
		})
		r.events.On(list, "edit", func(ctx context.Context, e view.Event) error {
			base, ok := c.Find(e.ID)
			if !ok {
				return fmt.Errorf("%s %s: %w", list, e.ID, listcache.ErrNotFound)
			}
			form := c.NewForm()
			if err := Fill(form, base, e.Values); err != nil {
				return err
			}
			_, err := c.Update(ctx, e.ID, form)
			return err
		})
		r.events.On(list, "view", func(_ context.Context, e view.Event) error {
			rec, ok := c.Find(e.ID)
			if !ok {
				return fmt.Errorf("%s %s: %w", list, e.ID, listcache.ErrNotFound)
			}
			f, err := view.Text{}.Item(c.layout, rec)
			if err != nil {
				return err
			}
			r.deps.Notifier.Notify(notify.KindInfo, f.Content)
			return nil
		})
	}

	r.events.On(Inventory, "adjust-stock", func(ctx context.Context, e view.Event) error {
		qty, err := strconv.ParseFloat(e.Values["quantity"], 64)
		if err != nil {
			return fmt.Errorf("adjust-stock: quantity: %w", err)
		}
		_, err = r.Inventory.AdjustStock(ctx, e.ID, e.Values["operation"], qty)
		return err
	})
}
