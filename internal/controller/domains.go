package controller

import (
	"strconv"
	"strings"
	"time"

	"github.com/rebano/rebano-go/internal/listcache"
	"github.com/rebano/rebano-go/internal/view"
)

// Domain names, which are also the list names in the document.
const (
	Animals   = "animals"
	Inventory = "inventory"
	Sales     = "sales"
	Purchases = "purchases"
	Feeds     = "feeds"
)

// Badge variants for inventory stock levels.
const (
	StockLow = "low"
	StockOK  = "ok"
)

// LowStock reports whether an inventory record is at or below its minimum.
func LowStock(r listcache.Record) bool {
	return r.Float("currentStock") <= r.Float("minStock")
}

func stockVariant(r listcache.Record) string {
	if LowStock(r) {
		return StockLow
	}
	return StockOK
}

func text(field string) func(listcache.Record) string {
	return func(r listcache.Record) string {
		if v := r.String(field); v != "" {
			return v
		}
		return view.NotAvailable
	}
}

func withUnit(field string) func(listcache.Record) string {
	return func(r listcache.Record) string {
		return strings.TrimSpace(r.String(field) + " " + r.String("unit"))
	}
}

func count(n int) string { return strconv.Itoa(n) }

var animalStatus = map[string]string{
	"active":      "Activo",
	"sold":        "Vendido",
	"deceased":    "Fallecido",
	"transferred": "Transferido",
}

var animalStatusVariant = map[string]string{
	"active":      "success",
	"sold":        "warning",
	"deceased":    "danger",
	"transferred": "info",
}

var genders = map[string]string{
	"male":   "Macho",
	"female": "Hembra",
}

var purchaseTypes = map[string]string{
	"medicine":  "Medicina",
	"equipment": "Equipo",
	"supplies":  "Insumos",
	"tools":     "Herramientas",
	"other":     "Otro",
}

func lookup(table map[string]string, field, fallback string) func(listcache.Record) string {
	return func(r listcache.Record) string {
		if v, ok := table[r.String(field)]; ok {
			return v
		}
		if fallback != "" {
			return fallback
		}
		return r.String(field)
	}
}

// AnimalDomain is the animal registry.
func AnimalDomain() Domain {
	return Domain{
		Name:     Animals,
		Endpoint: "/animals",
		Label:    "Animal",
		Layout: func(f *view.Formatter) view.Layout {
			return view.Layout{
				Name: Animals,
				Columns: []view.Column{
					{Label: "Arete", Value: text("earTag")},
					{Label: "Nombre", Value: text("name")},
					{Label: "Raza", Value: text("breed")},
					{Label: "Sexo", Value: lookup(genders, "gender", "Desconocido")},
					{Label: "Peso", Value: func(r listcache.Record) string {
						return f.Number(r.Float("weight")) + " kg"
					}},
					{Label: "Nacimiento", Value: func(r listcache.Record) string { return f.Date(r.String("birthDate")) }},
					{
						Label: "Estado",
						Value: lookup(animalStatus, "status", "Desconocido"),
						Variant: func(r listcache.Record) string {
							if v, ok := animalStatusVariant[r.String("status")]; ok {
								return v
							}
							return "secondary"
						},
					},
				},
				Actions:   []view.Action{{Name: "edit", Label: "Editar"}, {Name: "delete", Label: "Eliminar"}},
				EmptyText: "No hay animales registrados",
			}
		},
		Stats: func(items []listcache.Record, _ time.Time, _ *view.Formatter) []view.Stat {
			var active, sold int
			for _, r := range items {
				switch r.String("status") {
				case "active":
					active++
				case "sold":
					sold++
				}
			}
			return []view.Stat{
				{Name: "total", Label: "Total de animales", Value: count(len(items))},
				{Name: "active", Label: "Activos", Value: count(active)},
				{Name: "sold", Label: "Vendidos", Value: count(sold)},
			}
		},
		NewForm: func() any { return &AnimalForm{} },
	}
}

// InventoryDomain is the supplies inventory. It falls back to demonstration
// data when the backend is missing or failing.
func InventoryDomain() Domain {
	return Domain{
		Name:     Inventory,
		Endpoint: "/inventory",
		Label:    "Inventario",
		Layout: func(f *view.Formatter) view.Layout {
			return view.Layout{
				Name: Inventory,
				Columns: []view.Column{
					{Label: "Item", Value: text("itemName")},
					{Label: "Categoría", Value: text("category")},
					{Label: "Stock", Value: withUnit("currentStock"), Variant: stockVariant},
					{Label: "Mínimo", Value: withUnit("minStock")},
					{Label: "Precio", Value: func(r listcache.Record) string { return f.Currency(r.Float("price")) }},
					{Label: "Proveedor", Value: text("supplier")},
					{Label: "Actualizado", Value: func(r listcache.Record) string { return f.Date(r.String("lastUpdated")) }},
				},
				Actions: []view.Action{
					{Name: "adjust-stock", Label: "Stock"},
					{Name: "edit", Label: "Editar"},
					{Name: "delete", Label: "Eliminar"},
				},
				EmptyText: "No hay items en el inventario",
				RowClass: func(r listcache.Record) string {
					if LowStock(r) {
						return "table-warning"
					}
					return ""
				},
			}
		},
		Stats: func(items []listcache.Record, _ time.Time, f *view.Formatter) []view.Stat {
			var low int
			var value float64
			for _, r := range items {
				if LowStock(r) {
					low++
				}
				value += r.Float("currentStock") * r.Float("price")
			}
			return []view.Stat{
				{Name: "total", Label: "Total de items", Value: count(len(items))},
				{Name: "low", Label: "Stock bajo", Value: count(low)},
				{Name: "value", Label: "Valor total", Value: f.Currency(value)},
			}
		},
		Fallback: demoInventory,
		NewForm:  func() any { return &InventoryForm{} },
	}
}

func demoInventory(now time.Time) []listcache.Record {
	today := now.Format("2006-01-02")
	return []listcache.Record{
		{
			"id": "demo-1", "itemName": "Alimento balanceado", "category": "alimento",
			"currentStock": 40.0, "minStock": 20.0, "unit": "kg", "price": 18.5,
			"supplier": "Forrajes del Norte", "lastUpdated": today,
		},
		{
			"id": "demo-2", "itemName": "Desparasitante", "category": "medicina",
			"currentStock": 3.0, "minStock": 5.0, "unit": "frascos", "price": 245.0,
			"supplier": "Veterinaria San Jorge", "lastUpdated": today,
		},
		{
			"id": "demo-3", "itemName": "Sal mineral", "category": "suplemento",
			"currentStock": 10.0, "minStock": 10.0, "unit": "kg", "price": 32.0,
			"lastUpdated": today,
		},
	}
}

// SalesDomain is the sales ledger.
func SalesDomain() Domain {
	return Domain{
		Name:     Sales,
		Endpoint: "/sales",
		Label:    "Venta",
		Layout: func(f *view.Formatter) view.Layout {
			return view.Layout{
				Name: Sales,
				Columns: []view.Column{
					{Label: "Animal", Value: text("animalName")},
					{Label: "Arete", Value: text("animalEarTag")},
					{Label: "Precio", Value: func(r listcache.Record) string { return f.Currency(r.Float("salePrice")) }},
					{Label: "Peso", Value: func(r listcache.Record) string {
						if r.Float("weightAtSale") == 0 {
							return view.NotAvailable
						}
						return f.Number(r.Float("weightAtSale")) + " kg"
					}},
					{Label: "Comprador", Value: text("buyerName")},
					{Label: "Fecha", Value: func(r listcache.Record) string { return f.Date(r.String("saleDate")) }},
				},
				Actions:   []view.Action{{Name: "view", Label: "Ver"}, {Name: "delete", Label: "Eliminar"}},
				EmptyText: "No hay ventas registradas",
			}
		},
		Stats: func(items []listcache.Record, now time.Time, f *view.Formatter) []view.Stat {
			var revenue float64
			var monthly int
			for _, r := range items {
				revenue += r.Float("salePrice")
				if t, ok := recordTime(r, "saleDate"); ok && t.Year() == now.Year() && t.Month() == now.Month() {
					monthly++
				}
			}
			return []view.Stat{
				{Name: "total", Label: "Total de ventas", Value: count(len(items))},
				{Name: "revenue", Label: "Ingresos", Value: f.Currency(revenue)},
				{Name: "monthly", Label: "Ventas del mes", Value: count(monthly)},
			}
		},
		NewForm: func() any { return &SaleForm{} },
	}
}

// PurchasesDomain is the purchases ledger.
func PurchasesDomain() Domain {
	return Domain{
		Name:     Purchases,
		Endpoint: "/purchases",
		Label:    "Compra",
		Layout: func(f *view.Formatter) view.Layout {
			return view.Layout{
				Name: Purchases,
				Columns: []view.Column{
					{Label: "Tipo", Value: lookup(purchaseTypes, "type", "")},
					{Label: "Descripción", Value: text("description")},
					{Label: "Cantidad", Value: func(r listcache.Record) string { return f.Number(r.Float("quantity")) }},
					{Label: "Costo unitario", Value: func(r listcache.Record) string { return f.Currency(r.Float("unitCost")) }},
					{Label: "Total", Value: func(r listcache.Record) string { return f.Currency(purchaseTotal(r)) }},
					{Label: "Fecha", Value: func(r listcache.Record) string { return f.Date(r.String("purchaseDate")) }},
				},
				Actions:   []view.Action{{Name: "delete", Label: "Eliminar"}},
				EmptyText: "No hay compras registradas",
			}
		},
		Stats: func(items []listcache.Record, _ time.Time, f *view.Formatter) []view.Stat {
			var spent float64
			for _, r := range items {
				spent += purchaseTotal(r)
			}
			return []view.Stat{
				{Name: "total", Label: "Total de compras", Value: count(len(items))},
				{Name: "spent", Label: "Gasto total", Value: f.Currency(spent)},
			}
		},
		NewForm: func() any { return &PurchaseForm{} },
	}
}

func purchaseTotal(r listcache.Record) float64 {
	if _, ok := r["totalCost"]; ok {
		return r.Float("totalCost")
	}
	return r.Float("quantity") * r.Float("unitCost")
}

// FeedsDomain is the feeding log. Like inventory it shows demonstration
// data when the backend is missing or failing.
func FeedsDomain() Domain {
	return Domain{
		Name:     Feeds,
		Endpoint: "/feeds",
		Label:    "Alimentación",
		Layout: func(f *view.Formatter) view.Layout {
			return view.Layout{
				Name: Feeds,
				Columns: []view.Column{
					{Label: "Alimento", Value: text("feedType")},
					{Label: "Cantidad", Value: withUnit("quantity")},
					{Label: "Lote", Value: text("batchNumber")},
					{Label: "Fecha", Value: func(r listcache.Record) string { return f.Date(r.String("feedingDate")) }},
					{Label: "Notas", Value: text("notes")},
				},
				Actions:   []view.Action{{Name: "edit", Label: "Editar"}, {Name: "delete", Label: "Eliminar"}},
				EmptyText: "No hay registros de alimentación",
			}
		},
		Stats: func(items []listcache.Record, _ time.Time, f *view.Formatter) []view.Stat {
			var qty float64
			for _, r := range items {
				qty += r.Float("quantity")
			}
			return []view.Stat{
				{Name: "total", Label: "Registros", Value: count(len(items))},
				{Name: "quantity", Label: "Cantidad total", Value: f.Number(qty)},
			}
		},
		Fallback: demoFeeds,
		NewForm:  func() any { return &FeedForm{} },
	}
}

func demoFeeds(now time.Time) []listcache.Record {
	today := now.Format("2006-01-02")
	return []listcache.Record{
		{
			"id": "demo-1", "feedType": "Alfalfa", "quantity": 50.0, "unit": "kg",
			"batchNumber": "LOTE-001", "feedingDate": today, "notes": "Lote nuevo de alfalfa premium",
		},
		{
			"id": "demo-2", "feedType": "Maíz molido", "quantity": 100.0, "unit": "kg",
			"batchNumber": "LOTE-002", "feedingDate": today, "notes": "Mezcla para engorda",
		},
	}
}

func recordTime(r listcache.Record, field string) (time.Time, bool) {
	v := r.String(field)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Domains returns every domain in navigation order.
func Domains() []Domain {
	return []Domain{AnimalDomain(), InventoryDomain(), SalesDomain(), PurchasesDomain(), FeedsDomain()}
}
