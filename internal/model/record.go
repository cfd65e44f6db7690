package model

import (
	"maps"
	"time"
)

// Collections.
const (
	Animals   = "animals"
	Inventory = "inventory"
	Sales     = "sales"
	Purchases = "purchases"
	Feeds     = "feeds"
)

// Document is one stored record of a collection. Data holds the
// user-editable fields; the bookkeeping columns are kept apart.
type Document struct {
	ID         string
	Collection string
	UserID     string
	Data       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Record is the JSON shape of a document in API responses.
type Record map[string]any

// Record flattens d into its response shape.
func (d *Document) Record() Record {
	r := make(Record, len(d.Data)+4)
	maps.Copy(r, d.Data)
	r["id"] = d.ID
	r["userId"] = d.UserID
	r["createdAt"] = d.CreatedAt.UTC().Format(time.RFC3339)
	r["updatedAt"] = d.UpdatedAt.UTC().Format(time.RFC3339)
	return r
}

// Reserved are the Record keys owned by the store.
var Reserved = []string{"id", "userId", "createdAt", "updatedAt"}
