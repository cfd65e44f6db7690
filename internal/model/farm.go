package model

// Animal statuses.
const (
	StatusActive = "active"
	StatusSold   = "sold"
)

// AnimalRequest creates or replaces an animal.
type AnimalRequest struct {
	EarTag    string  `json:"earTag" validate:"required"`
	Name      string  `json:"name,omitempty"`
	Breed     string  `json:"breed" validate:"required"`
	Gender    string  `json:"gender,omitempty" validate:"omitempty,oneof=male female unknown"`
	BirthDate string  `json:"birthDate,omitempty"`
	Weight    float64 `json:"weight,omitempty" validate:"gte=0"`
	Status    string  `json:"status,omitempty" validate:"omitempty,oneof=active sold deceased transferred"`
	Notes     string  `json:"notes,omitempty"`
}

// InventoryRequest creates or replaces an inventory item.
type InventoryRequest struct {
	ItemName     string  `json:"itemName" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	CurrentStock float64 `json:"currentStock" validate:"gte=0"`
	MinStock     float64 `json:"minStock" validate:"gte=0"`
	Unit         string  `json:"unit,omitempty"`
	Price        float64 `json:"price" validate:"gte=0"`
	Supplier     string  `json:"supplier,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// Stock operations.
const (
	StockAdd      = "add"
	StockSubtract = "subtract"
	StockSet      = "set"
)

// StockRequest adjusts the stock of an inventory item. NewStock is read
// for the set operation when present, Quantity otherwise.
type StockRequest struct {
	Operation string   `json:"operation" validate:"required,oneof=add subtract set"`
	Quantity  float64  `json:"quantity" validate:"gte=0"`
	NewStock  *float64 `json:"newStock,omitempty" validate:"omitempty,gte=0"`
}

// StockResult reports a stock adjustment.
type StockResult struct {
	PreviousStock float64 `json:"previousStock"`
	NewStock      float64 `json:"newStock"`
}

// SaleRequest records the sale of one animal, named by id or ear tag.
type SaleRequest struct {
	AnimalID     string  `json:"animalId,omitempty" validate:"required_without=AnimalEarTag"`
	AnimalEarTag string  `json:"animalEarTag,omitempty" validate:"required_without=AnimalID"`
	SalePrice    float64 `json:"salePrice" validate:"gt=0"`
	WeightAtSale float64 `json:"weightAtSale,omitempty" validate:"gte=0"`
	BuyerName    string  `json:"buyerName,omitempty"`
	BuyerContact string  `json:"buyerContact,omitempty"`
	SaleDate     string  `json:"saleDate,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// PurchaseRequest records a purchase. The total is derived.
type PurchaseRequest struct {
	Type         string  `json:"type" validate:"required,oneof=medicine equipment supplies tools other"`
	Description  string  `json:"description" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	UnitCost     float64 `json:"unitCost" validate:"gte=0"`
	Supplier     string  `json:"supplier,omitempty"`
	PurchaseDate string  `json:"purchaseDate,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// FeedRequest records a feeding. AnimalID, when set, must name an animal
// of the same user.
type FeedRequest struct {
	FeedType    string  `json:"feedType" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	Unit        string  `json:"unit,omitempty"`
	BatchNumber string  `json:"batchNumber,omitempty"`
	FeedingDate string  `json:"feedingDate,omitempty"`
	AnimalID    string  `json:"animalId,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// Dashboard holds the summary figures of one user.
type Dashboard struct {
	TotalAnimals   int `json:"total_animals"`
	ActiveAnimals  int `json:"active_animals"`
	LowStockItems  int `json:"low_stock_items"`
	TotalInventory int `json:"total_inventory"`
}
