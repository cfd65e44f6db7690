package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/rebano/rebano-go/internal/listcache"
)

// AnimalForm is the payload of an animal create or update.
type AnimalForm struct {
	EarTag    string  `json:"earTag" validate:"required"`
	Name      string  `json:"name,omitempty"`
	Breed     string  `json:"breed" validate:"required"`
	Gender    string  `json:"gender,omitempty" validate:"omitempty,oneof=male female unknown"`
	BirthDate string  `json:"birthDate,omitempty"`
	Weight    float64 `json:"weight,omitempty" validate:"gte=0"`
	Status    string  `json:"status,omitempty" validate:"omitempty,oneof=active sold deceased transferred"`
	Notes     string  `json:"notes,omitempty"`
}

// InventoryForm is the payload of an inventory item create or update.
type InventoryForm struct {
	ItemName     string  `json:"itemName" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	CurrentStock float64 `json:"currentStock" validate:"gte=0"`
	MinStock     float64 `json:"minStock" validate:"gte=0"`
	Unit         string  `json:"unit,omitempty"`
	Price        float64 `json:"price" validate:"gte=0"`
	Supplier     string  `json:"supplier,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// SaleForm is the payload of a sale. The animal is named by id or ear tag.
type SaleForm struct {
	AnimalID     string  `json:"animalId,omitempty" validate:"required_without=AnimalEarTag"`
	AnimalEarTag string  `json:"animalEarTag,omitempty" validate:"required_without=AnimalID"`
	SalePrice    float64 `json:"salePrice" validate:"gt=0"`
	WeightAtSale float64 `json:"weightAtSale,omitempty" validate:"gte=0"`
	BuyerName    string  `json:"buyerName,omitempty"`
	BuyerContact string  `json:"buyerContact,omitempty"`
	SaleDate     string  `json:"saleDate,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// PurchaseForm is the payload of a purchase.
type PurchaseForm struct {
	Type         string  `json:"type" validate:"required,oneof=medicine equipment supplies tools other"`
	Description  string  `json:"description" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	UnitCost     float64 `json:"unitCost" validate:"gte=0"`
	Supplier     string  `json:"supplier,omitempty"`
	PurchaseDate string  `json:"purchaseDate,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// FeedForm is the payload of a feeding record.
type FeedForm struct {
	FeedType    string  `json:"feedType" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	Unit        string  `json:"unit,omitempty"`
	BatchNumber string  `json:"batchNumber,omitempty"`
	FeedingDate string  `json:"feedingDate,omitempty"`
	AnimalID    string  `json:"animalId,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// StockForm is the payload of a stock adjustment.
type StockForm struct {
	Operation string  `json:"operation" validate:"required,oneof=add subtract set"`
	Quantity  float64 `json:"quantity" validate:"gt=0"`
	NewStock  float64 `json:"newStock,omitempty"`
}

// Fill loads base into form and then overlays values, keyed by JSON field
// name. form must be a pointer to a struct.
func Fill(form any, base listcache.Record, values map[string]string) error {
	rv := reflect.ValueOf(form)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("fill: %T is not a pointer to a struct", form)
	}

	if len(base) > 0 {
		data, err := json.Marshal(base)
		if err != nil {
			return fmt.Errorf("fill: %w", err)
		}
		// Fields stored with an unexpected type are left for values to set.
		var typeErr *json.UnmarshalTypeError
		if err := json.Unmarshal(data, form); err != nil && !errors.As(err, &typeErr) {
			return fmt.Errorf("fill: %w", err)
		}
	}

	fields := jsonFields(rv.Elem())
	for name, raw := range values {
		fv, ok := fields[name]
		if !ok {
			return fmt.Errorf("fill: unknown field %q", name)
		}
		if err := setScalar(fv, raw); err != nil {
			return fmt.Errorf("fill: field %q: %w", name, err)
		}
	}
	return nil
}

func jsonFields(v reflect.Value) map[string]reflect.Value {
	out := make(map[string]reflect.Value)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		out[name] = v.Field(i)
	}
	return out
}

func setScalar(fv reflect.Value, raw string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Int, reflect.Int64, reflect.Int32:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		fv.SetBool(b)
	default:
		return fmt.Errorf("unsupported kind %s", fv.Kind())
	}
	return nil
}
