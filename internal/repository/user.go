package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/rebano/rebano-go/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// UserRepository handles account persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (uid, email, name, role, auth_hash) VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, user.UID, user.Email, user.Name, user.Role, user.AuthHash)
	if isDuplicateEntryError(err) {
		return ErrDuplicateEmail
	}
	return err
}

// UpsertProfile creates the profile of a provider account or refreshes its
// email, name and role. The password hash is never touched.
func (r *UserRepository) UpsertProfile(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (uid, email, name, role) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE email = VALUES(email), name = IF(VALUES(name) = '', name, VALUES(name)), role = VALUES(role)`

	_, err := r.db.ExecContext(ctx, query, user.UID, user.Email, user.Name, user.Role)
	if isDuplicateEntryError(err) {
		return ErrDuplicateEmail
	}
	return err
}

// UpdateHash replaces the password hash of uid.
func (r *UserRepository) UpdateHash(ctx context.Context, uid, hash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET auth_hash = ? WHERE uid = ?`, hash, uid)
	return err
}

const userColumns = `uid, email, name, role, auth_hash, created_at, updated_at`

// GetByEmail retrieves an account by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetByUID retrieves an account by uid.
func (r *UserRepository) GetByUID(ctx context.Context, uid string) (*model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE uid = ?`, uid)
}

func (r *UserRepository) get(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.UID, &user.Email, &user.Name, &user.Role, &user.AuthHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func isDuplicateEntryError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
