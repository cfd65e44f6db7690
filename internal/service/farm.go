package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"github.com/rebano/rebano-go/internal/model"
	"github.com/rebano/rebano-go/internal/repository"
)

var (
	ErrDuplicateEarTag = errors.New("ear tag already registered")
	ErrAnimalNotFound  = errors.New("animal not found")
	ErrAnimalSold      = errors.New("animal already sold")
)

// AnimalService manages the herd.
type AnimalService struct {
	*RecordService
}

func NewAnimalService(store *repository.Store) *AnimalService {
	return &AnimalService{RecordService: newRecordService(store, model.Animals)}
}

// Create registers an animal. The ear tag is unique per user; the name
// defaults to "Borrego <earTag>" and the status to active.
func (s *AnimalService) Create(ctx context.Context, uid string, body json.RawMessage) (model.Record, error) {
	in, err := decode[model.AnimalRequest](body)
	if err != nil {
		return nil, err
	}
	docs := s.docs()
	if err := s.checkEarTag(ctx, docs, uid, in.EarTag, ""); err != nil {
		return nil, err
	}
	if in.Name == "" {
		in.Name = "Borrego " + in.EarTag
	}
	if in.Status == "" {
		in.Status = model.StatusActive
	}
	data, err := fields(in)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, docs, uid, data)
}

// Update replaces the fields of animal id.
func (s *AnimalService) Update(ctx context.Context, uid, id string, body json.RawMessage) (model.Record, error) {
	in, err := decode[model.AnimalRequest](body)
	if err != nil {
		return nil, err
	}
	docs := s.docs()
	doc, err := owned(ctx, docs, uid, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.checkEarTag(ctx, docs, uid, in.EarTag, id); err != nil {
		return nil, err
	}
	data, err := fields(in)
	if err != nil {
		return nil, err
	}
	return s.merge(ctx, docs, doc, data)
}

func (s *AnimalService) checkEarTag(ctx context.Context, docs *repository.DocumentRepository, uid, earTag, self string) error {
	other, err := docs.FindByField(ctx, uid, "earTag", earTag)
	switch {
	case errors.Is(err, repository.ErrDocumentNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != self:
		return ErrDuplicateEarTag
	}
	return nil
}

// InventoryService manages supplies.
type InventoryService struct {
	*RecordService
}

func NewInventoryService(store *repository.Store) *InventoryService {
	return &InventoryService{RecordService: newRecordService(store, model.Inventory)}
}

func (s *InventoryService) Create(ctx context.Context, uid string, body json.RawMessage) (model.Record, error) {
	in, err := decode[model.InventoryRequest](body)
	if err != nil {
		return nil, err
	}
	data, err := fields(in)
	if err != nil {
		return nil, err
	}
	data["lastUpdated"] = s.today()
	return s.insert(ctx, s.docs(), uid, data)
}

func (s *InventoryService) Update(ctx context.Context, uid, id string, body json.RawMessage) (model.Record, error) {
	in, err := decode[model.InventoryRequest](body)
	if err != nil {
		return nil, err
	}
	docs := s.docs()
	doc, err := owned(ctx, docs, uid, id, false)
	if err != nil {
		return nil, err
	}
	data, err := fields(in)
	if err != nil {
		return nil, err
	}
	data["lastUpdated"] = s.today()
	return s.merge(ctx, docs, doc, data)
}

// AdjustStock applies a stock operation to item id under a row lock.
func (s *InventoryService) AdjustStock(ctx context.Context, uid, id string, body json.RawMessage) (model.StockResult, error) {
	in, err := decode[model.StockRequest](body)
	if err != nil {
		return model.StockResult{}, err
	}

	var res model.StockResult
	err = s.store.InTx(ctx, func(tx *repository.Tx) error {
		docs := tx.Documents(s.collection)
		doc, err := owned(ctx, docs, uid, id, true)
		if err != nil {
			return err
		}
		res.PreviousStock = number(doc.Data["currentStock"])
		res.NewStock = applyStock(res.PreviousStock, *in)
		_, err = s.merge(ctx, docs, doc, map[string]any{
			"currentStock": res.NewStock,
			"lastUpdated":  s.today(),
		})
		return err
	})
	return res, err
}

// applyStock computes the stock after op. Stock never goes below zero.
func applyStock(current float64, req model.StockRequest) float64 {
	var next float64
	switch req.Operation {
	case model.StockAdd:
		next = current + req.Quantity
	case model.StockSubtract:
		next = current - req.Quantity
	case model.StockSet:
		next = req.Quantity
		if req.NewStock != nil {
			next = *req.NewStock
		}
	default:
		next = current
	}
	return math.Max(0, next)
}

// SaleService records animal sales.
type SaleService struct {
	*RecordService
}

func NewSaleService(store *repository.Store) *SaleService {
	return &SaleService{RecordService: newRecordService(store, model.Sales)}
}

// Create records a sale and marks the animal sold in the same transaction.
// The sale keeps a copy of the animal's ear tag and name.
func (s *SaleService) Create(ctx context.Context, uid string, body json.RawMessage) (model.Record, error) {
	in, err := decode[model.SaleRequest](body)
	if err != nil {
		return nil, err
	}
	if in.SaleDate == "" {
		in.SaleDate = s.today()
	}

	var sale model.Record
	err = s.store.InTx(ctx, func(tx *repository.Tx) error {
		animals := tx.Documents(model.Animals)
		animal, err := findAnimal(ctx, animals, uid, in.AnimalID, in.AnimalEarTag)
		if err != nil {
			return err
		}
		if text(animal.Data["status"]) == model.StatusSold {
			return ErrAnimalSold
		}

		data, err := fields(in)
		if err != nil {
			return err
		}
		data["animalId"] = animal.ID
		data["animalEarTag"] = text(animal.Data["earTag"])
		data["animalName"] = text(animal.Data["name"])
		if sale, err = s.insert(ctx, tx.Documents(s.collection), uid, data); err != nil {
			return err
		}

		_, err = s.merge(ctx, animals, animal, map[string]any{
			"status":    model.StatusSold,
			"saleDate":  in.SaleDate,
			"salePrice": in.SalePrice,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// Update changes the sale fields. The animal link is not revisited.
func (s *SaleService) Update(ctx context.Context, uid, id string, body json.RawMessage) (model.Record, error) {
	in, err := decode[model.SaleRequest](body)
	if err != nil {
		return nil, err
	}
	docs := s.docs()
	doc, err := owned(ctx, docs, uid, id, false)
	if err != nil {
		return nil, err
	}
	data, err := fields(in)
	if err != nil {
		return nil, err
	}
	delete(data, "animalId")
	delete(data, "animalEarTag")
	return s.merge(ctx, docs, doc, data)
}

func findAnimal(ctx context.Context, animals *repository.DocumentRepository, uid, id, earTag string) (*model.Document, error) {
	if id != "" {
		doc, err := owned(ctx, animals, uid, id, true)
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrAnimalNotFound
		}
		return doc, err
	}
	doc, err := animals.FindByField(ctx, uid, "earTag", earTag)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return nil, ErrAnimalNotFound
	}
	return doc, err
}

// FeedService records feedings.
type FeedService struct {
	*RecordService
}

func NewFeedService(store *repository.Store) *FeedService {
	return &FeedService{RecordService: newRecordService(store, model.Feeds)}
}

func (s *FeedService) Create(ctx context.Context, uid string, body json.RawMessage) (model.Record, error) {
	in, err := decode[model.FeedRequest](body)
	if err != nil {
		return nil, err
	}
	if err := s.checkAnimal(ctx, uid, in.AnimalID); err != nil {
		return nil, err
	}
	if in.FeedingDate == "" {
		in.FeedingDate = s.today()
	}
	data, err := fields(in)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, s.docs(), uid, data)
}

func (s *FeedService) Update(ctx context.Context, uid, id string, body json.RawMessage) (model.Record, error) {
	in, err := decode[model.FeedRequest](body)
	if err != nil {
		return nil, err
	}
	docs := s.docs()
	doc, err := owned(ctx, docs, uid, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.checkAnimal(ctx, uid, in.AnimalID); err != nil {
		return nil, err
	}
	data, err := fields(in)
	if err != nil {
		return nil, err
	}
	return s.merge(ctx, docs, doc, data)
}

func (s *FeedService) checkAnimal(ctx context.Context, uid, animalID string) error {
	if animalID == "" {
		return nil
	}
	_, err := findAnimal(ctx, s.store.Documents(model.Animals), uid, animalID, "")
	return err
}

// PurchaseService records purchases.
type PurchaseService struct {
	*RecordService
}

func NewPurchaseService(store *repository.Store) *PurchaseService {
	return &PurchaseService{RecordService: newRecordService(store, model.Purchases)}
}

func (s *PurchaseService) Create(ctx context.Context, uid string, body json.RawMessage) (model.Record, error) {
	data, err := s.prepare(body)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, s.docs(), uid, data)
}

func (s *PurchaseService) Update(ctx context.Context, uid, id string, body json.RawMessage) (model.Record, error) {
	data, err := s.prepare(body)
	if err != nil {
		return nil, err
	}
	docs := s.docs()
	doc, err := owned(ctx, docs, uid, id, false)
	if err != nil {
		return nil, err
	}
	return s.merge(ctx, docs, doc, data)
}

// prepare validates a purchase and derives totalCost.
func (s *PurchaseService) prepare(body json.RawMessage) (map[string]any, error) {
	in, err := decode[model.PurchaseRequest](body)
	if err != nil {
		return nil, err
	}
	if in.PurchaseDate == "" {
		in.PurchaseDate = s.today()
	}
	data, err := fields(in)
	if err != nil {
		return nil, err
	}
	data["totalCost"] = math.Round(in.Quantity*in.UnitCost*100) / 100
	return data, nil
}

// DashboardService computes the summary figures.
type DashboardService struct {
	store *repository.Store
}

func NewDashboardService(store *repository.Store) *DashboardService {
	return &DashboardService{store: store}
}

// Summary counts the animals and supplies of uid.
func (s *DashboardService) Summary(ctx context.Context, uid string) (model.Dashboard, error) {
	animals := s.store.Documents(model.Animals)
	inventory := s.store.Documents(model.Inventory)

	var d model.Dashboard
	var err error
	if d.TotalAnimals, err = animals.Count(ctx, uid); err != nil {
		return model.Dashboard{}, err
	}
	if d.ActiveAnimals, err = animals.CountWhere(ctx, uid, "status", model.StatusActive); err != nil {
		return model.Dashboard{}, err
	}
	if d.LowStockItems, err = inventory.CountAtOrBelow(ctx, uid, "currentStock", "minStock"); err != nil {
		return model.Dashboard{}, err
	}
	if d.TotalInventory, err = inventory.Count(ctx, uid); err != nil {
		return model.Dashboard{}, err
	}
	return d, nil
}
