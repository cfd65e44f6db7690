package handler

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rebano/rebano-go/internal/model"
)

// RecordService is the per-user CRUD of one collection.
type RecordService interface {
	List(ctx context.Context, uid string) ([]model.Record, error)
	Get(ctx context.Context, uid, id string) (model.Record, error)
	Create(ctx context.Context, uid string, body json.RawMessage) (model.Record, error)
	Update(ctx context.Context, uid, id string, body json.RawMessage) (model.Record, error)
	Delete(ctx context.Context, uid, id string) error
}

// Envelope shapes a list response.
type Envelope func([]model.Record) any

// Bare sends the list as a JSON array.
func Bare(list []model.Record) any { return list }

// Keyed sends {"<key>": [...]}.
func Keyed(key string) Envelope {
	return func(list []model.Record) any { return map[string]any{key: list} }
}

// Nested sends {"data": {"<key>": [...]}}.
func Nested(key string) Envelope {
	return func(list []model.Record) any {
		return map[string]any{"data": map[string]any{key: list}}
	}
}

// RecordHandler serves the REST routes of one collection.
type RecordHandler struct {
	service  RecordService
	envelope Envelope
}

// NewRecordHandler creates a RecordHandler.
func NewRecordHandler(svc RecordService, envelope Envelope) *RecordHandler {
	return &RecordHandler{service: svc, envelope: envelope}
}

// Routes mounts the collection routes on r.
func (h *RecordHandler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
}

// HandleList handles GET / requests.
func (h *RecordHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.envelope(list))
}

// HandleGet handles GET /{id} requests.
func (h *RecordHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleCreate handles POST / requests.
func (h *RecordHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body json.RawMessage
	if !readBody(w, r, &body) {
		return
	}

	rec, err := h.service.Create(r.Context(), uid, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, withMessage(rec, "Registro creado"))
}

// HandleUpdate handles PUT /{id} requests.
func (h *RecordHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body json.RawMessage
	if !readBody(w, r, &body) {
		return
	}

	rec, err := h.service.Update(r.Context(), uid, chi.URLParam(r, "id"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withMessage(rec, "Registro actualizado"))
}

// HandleDelete handles DELETE /{id} requests.
func (h *RecordHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Registro eliminado"})
}

func withMessage(rec model.Record, msg string) model.Record {
	out := maps.Clone(rec)
	if out == nil {
		out = model.Record{}
	}
	out["message"] = msg
	return out
}

// StockAdjuster applies stock operations to inventory items.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, uid, id string, body json.RawMessage) (model.StockResult, error)
}

// StockHandler serves PUT /inventory/{id}/stock.
type StockHandler struct {
	service StockAdjuster
}

func NewStockHandler(svc StockAdjuster) *StockHandler {
	return &StockHandler{service: svc}
}

func (h *StockHandler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body json.RawMessage
	if !readBody(w, r, &body) {
		return
	}

	res, err := h.service.AdjustStock(r.Context(), uid, chi.URLParam(r, "id"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Summarizer computes dashboard figures.
type Summarizer interface {
	Summary(ctx context.Context, uid string) (model.Dashboard, error)
}

// DashboardHandler serves GET /dashboard.
type DashboardHandler struct {
	service Summarizer
}

func NewDashboardHandler(svc Summarizer) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

func (h *DashboardHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	d, err := h.service.Summary(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
