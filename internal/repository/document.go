package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/rebano/rebano-go/internal/model"
)

var ErrDocumentNotFound = errors.New("document not found")

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// jsonPath turns a record field into a MySQL JSON path.
func jsonPath(field string) (string, error) {
	if !fieldName.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return "$." + field, nil
}

// DocumentRepository persists the records of one collection.
type DocumentRepository struct {
	q          querier
	collection string
}

// NewDocumentRepository creates a repository for collection over db.
func NewDocumentRepository(db *sql.DB, collection string) *DocumentRepository {
	return &DocumentRepository{q: db, collection: collection}
}

// Collection returns the collection name.
func (r *DocumentRepository) Collection() string { return r.collection }

const documentColumns = `id, user_id, data, created_at, updated_at`

// Insert stores doc. A missing id is generated; missing timestamps are set
// to now.
func (r *DocumentRepository) Insert(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	doc.Collection = r.collection

	data, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("encoding %s document: %w", r.collection, err)
	}

	query := `INSERT INTO documents (id, collection, user_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = r.q.ExecContext(ctx, query, doc.ID, r.collection, doc.UserID, data, doc.CreatedAt, doc.UpdatedAt)
	return err
}

// Get retrieves a document by id, whoever owns it.
func (r *DocumentRepository) Get(ctx context.Context, id string) (*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE collection = ? AND id = ?`
	return r.scanOne(r.q.QueryRowContext(ctx, query, r.collection, id))
}

// GetForUpdate is Get that locks the row until the transaction ends.
func (r *DocumentRepository) GetForUpdate(ctx context.Context, id string) (*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE collection = ? AND id = ? FOR UPDATE`
	return r.scanOne(r.q.QueryRowContext(ctx, query, r.collection, id))
}

// FindByField returns the first document of userID whose field equals
// value, or ErrDocumentNotFound.
func (r *DocumentRepository) FindByField(ctx context.Context, userID, field, value string) (*model.Document, error) {
	path, err := jsonPath(field)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE collection = ? AND user_id = ? AND JSON_UNQUOTE(JSON_EXTRACT(data, ?)) = ?
		ORDER BY created_at ASC LIMIT 1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, r.collection, userID, path, value))
}

// List retrieves every document of userID, newest first.
func (r *DocumentRepository) List(ctx context.Context, userID string) ([]model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE collection = ? AND user_id = ? ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, r.collection, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		doc, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Update replaces the data of doc and bumps its update time.
func (r *DocumentRepository) Update(ctx context.Context, doc *model.Document) error {
	data, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("encoding %s document: %w", r.collection, err)
	}
	doc.UpdatedAt = time.Now().UTC()

	query := `UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`
	result, err := r.q.ExecContext(ctx, query, data, doc.UpdatedAt, r.collection, doc.ID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete removes a document by id.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM documents WHERE collection = ? AND id = ?`
	result, err := r.q.ExecContext(ctx, query, r.collection, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Count returns how many documents userID has.
func (r *DocumentRepository) Count(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM documents WHERE collection = ? AND user_id = ?`
	var n int
	err := r.q.QueryRowContext(ctx, query, r.collection, userID).Scan(&n)
	return n, err
}

// CountWhere returns how many documents of userID have field equal to value.
func (r *DocumentRepository) CountWhere(ctx context.Context, userID, field, value string) (int, error) {
	path, err := jsonPath(field)
	if err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM documents
		WHERE collection = ? AND user_id = ? AND JSON_UNQUOTE(JSON_EXTRACT(data, ?)) = ?`
	var n int
	err = r.q.QueryRowContext(ctx, query, r.collection, userID, path, value).Scan(&n)
	return n, err
}

// CountAtOrBelow returns how many documents of userID have a numeric field
// at or below the numeric limit field of the same document.
func (r *DocumentRepository) CountAtOrBelow(ctx context.Context, userID, field, limit string) (int, error) {
	fieldPath, err := jsonPath(field)
	if err != nil {
		return 0, err
	}
	limitPath, err := jsonPath(limit)
	if err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM documents
		WHERE collection = ? AND user_id = ?
		AND CAST(JSON_EXTRACT(data, ?) AS DECIMAL(14,3)) <= CAST(JSON_EXTRACT(data, ?) AS DECIMAL(14,3))`
	var n int
	err = r.q.QueryRowContext(ctx, query, r.collection, userID, fieldPath, limitPath).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *DocumentRepository) scan(s scanner) (*model.Document, error) {
	doc := &model.Document{Collection: r.collection}
	var data []byte
	if err := s.Scan(&doc.ID, &doc.UserID, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc.Data); err != nil {
			return nil, fmt.Errorf("decoding %s document %s: %w", r.collection, doc.ID, err)
		}
	}
	if doc.Data == nil {
		doc.Data = map[string]any{}
	}
	return doc, nil
}

func (r *DocumentRepository) scanOne(row *sql.Row) (*model.Document, error) {
	doc, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	return doc, err
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
