package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hunter-web/internal/domain"
	"hunter-web/internal/repository"
)

const userColumns = `id, username, password_hash, created_at, updated_at`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	var id int64
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
INSERT INTO users (username, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?)
RETURNING id`),
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("user %q: %w", user.Username, repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	return id, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	users, err := queryAll(ctx, r.db, scanUser, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	user, err := queryOne(ctx, r.db, scanUser, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// UpdateUsername renames exactly one user; the change is rolled back if
// anything other than a single row matched.
func (r *UserRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	err := r.db.ExecOne(ctx, `
UPDATE users
SET username = ?, updated_at = ?
WHERE id = ?`,
		username,
		time.Now().UTC(),
		id,
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoRowAffected):
		return fmt.Errorf("user %d: %w", id, repository.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("user %q: %w", username, repository.ErrDuplicate)
	default:
		return fmt.Errorf("update user: %w", err)
	}
}

func scanUser(row scanner) (domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}
