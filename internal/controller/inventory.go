package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rebano/rebano-go/internal/listcache"
	"github.com/rebano/rebano-go/internal/notify"
	"github.com/rebano/rebano-go/internal/validation"
)

// Stock operations.
const (
	StockAdd      = "add"
	StockSubtract = "subtract"
	StockSet      = "set"
)

// InventoryController adds stock adjustment to the inventory list.
type InventoryController struct {
	*Controller
}

// NewInventory creates the inventory controller.
func NewInventory(deps Deps) *InventoryController {
	return &InventoryController{Controller: New(InventoryDomain(), deps)}
}

type stockResult struct {
	PreviousStock float64 `json:"previousStock"`
	NewStock      float64 `json:"newStock"`
}

// AdjustStock adds, subtracts or sets the stock of item id and reconciles
// the local record with the stock the server settled on.
func (c *InventoryController) AdjustStock(ctx context.Context, id, op string, quantity float64) (listcache.Record, error) {
	form := StockForm{Operation: op, Quantity: quantity}
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	if op == StockSet {
		form.NewStock = quantity
	}

	raw, err := c.deps.Caller.Put(ctx, fmt.Sprintf("%s/%s/stock", c.domain.Endpoint, id), form)
	if err != nil {
		return nil, fmt.Errorf("adjusting stock of %s: %w", id, err)
	}

	var res stockResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decoding stock result: %w", err)
	}

	r, err := c.UpdateLocal(id, listcache.Record{"currentStock": res.NewStock})
	if err != nil {
		return nil, err
	}
	c.log.Info("stock adjusted", "id", id, "operation", op, "previous", res.PreviousStock, "new", res.NewStock)
	c.deps.Notifier.Notify(notify.KindSuccess, "Stock actualizado exitosamente")
	return r, nil
}
