package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// NewDB creates a MySQL connection pool for dsn. An unreachable server is
// logged, not fatal: the pool reconnects on first use.
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		slog.Warn("database ping failed, continuing without DB", "error", err)
	}

	return db, nil
}

// schema creates the tables when missing. Every farm collection shares the
// documents table; the record fields live in its JSON column.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		uid        VARCHAR(64)  NOT NULL PRIMARY KEY,
		email      VARCHAR(255) NOT NULL UNIQUE,
		name       VARCHAR(255) NOT NULL DEFAULT '',
		role       VARCHAR(32)  NOT NULL DEFAULT 'admin',
		auth_hash  VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id         VARCHAR(64) NOT NULL,
		collection VARCHAR(32) NOT NULL,
		user_id    VARCHAR(64) NOT NULL,
		data       JSON        NOT NULL,
		created_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
		PRIMARY KEY (collection, id),
		KEY idx_documents_owner (collection, user_id, created_at)
	)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

// querier is what *sql.DB and *sql.Tx have in common.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store hands out repositories over one pool and runs transactions.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Documents returns the repository of collection.
func (s *Store) Documents(collection string) *DocumentRepository {
	return &DocumentRepository{q: s.db, collection: collection}
}

// Users returns the account repository.
func (s *Store) Users() *UserRepository {
	return NewUserRepository(s.db)
}

// Tx is an open transaction.
type Tx struct {
	tx *sql.Tx
}

// Documents returns the repository of collection inside the transaction.
func (t *Tx) Documents(collection string) *DocumentRepository {
	return &DocumentRepository{q: t.tx, collection: collection}
}

// InTx runs fn in a transaction, committing when it returns nil and
// rolling back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(&Tx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
