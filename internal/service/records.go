package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/rebano/rebano-go/internal/model"
	"github.com/rebano/rebano-go/internal/repository"
	"github.com/rebano/rebano-go/internal/validation"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrForbidden      = errors.New("record belongs to another user")
	ErrInvalidBody    = errors.New("invalid request body")
)

const dateLayout = "2006-01-02"

// decode reads body into a T and checks its validate tags. Validation
// failures are returned as *validation.Error.
func decode[T any](body json.RawMessage) (*T, error) {
	var in T
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return &in, nil
}

// fields converts a request model into record data.
func fields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// number reads a numeric record field stored as a JSON number or string.
func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

func text(v any) string {
	s, _ := v.(string)
	return s
}

// RecordService is the per-user CRUD every collection shares.
type RecordService struct {
	store      *repository.Store
	collection string
	now        func() time.Time
}

func newRecordService(store *repository.Store, collection string) *RecordService {
	return &RecordService{store: store, collection: collection, now: time.Now}
}

func (s *RecordService) docs() *repository.DocumentRepository {
	return s.store.Documents(s.collection)
}

func (s *RecordService) today() string {
	return s.now().Format(dateLayout)
}

// List returns the records of uid, newest first.
func (s *RecordService) List(ctx context.Context, uid string) ([]model.Record, error) {
	docs, err := s.docs().List(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]model.Record, len(docs))
	for i := range docs {
		out[i] = docs[i].Record()
	}
	return out, nil
}

// Get returns record id of uid.
func (s *RecordService) Get(ctx context.Context, uid, id string) (model.Record, error) {
	doc, err := owned(ctx, s.docs(), uid, id, false)
	if err != nil {
		return nil, err
	}
	return doc.Record(), nil
}

// Delete removes record id of uid.
func (s *RecordService) Delete(ctx context.Context, uid, id string) error {
	docs := s.docs()
	if _, err := owned(ctx, docs, uid, id, false); err != nil {
		return err
	}
	if err := docs.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

func (s *RecordService) insert(ctx context.Context, docs *repository.DocumentRepository, uid string, data map[string]any) (model.Record, error) {
	doc := &model.Document{UserID: uid, Data: withoutReserved(data)}
	if err := docs.Insert(ctx, doc); err != nil {
		return nil, err
	}
	return doc.Record(), nil
}

// merge overlays patch on the stored record id of uid.
func (s *RecordService) merge(ctx context.Context, docs *repository.DocumentRepository, doc *model.Document, patch map[string]any) (model.Record, error) {
	maps.Copy(doc.Data, withoutReserved(patch))
	if err := docs.Update(ctx, doc); err != nil {
		return nil, notFound(err)
	}
	return doc.Record(), nil
}

// owned loads id and checks that uid owns it.
func owned(ctx context.Context, docs *repository.DocumentRepository, uid, id string, forUpdate bool) (*model.Document, error) {
	get := docs.Get
	if forUpdate {
		get = docs.GetForUpdate
	}
	doc, err := get(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if doc.UserID != uid {
		return nil, ErrForbidden
	}
	return doc, nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return ErrRecordNotFound
	}
	return err
}

func withoutReserved(data map[string]any) map[string]any {
	out := maps.Clone(data)
	if out == nil {
		out = map[string]any{}
	}
	for _, k := range model.Reserved {
		delete(out, k)
	}
	return out
}
