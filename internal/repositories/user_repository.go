// repositories/user_repository.go

package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/saraspatika/absensi_backend/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id_user = $1`, id).Scan(&count)
	return count > 0, err
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id_user, email, COALESCE(name, ''), password_hash, role
		FROM users
		WHERE email = $1
	`
	var u models.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&u.IDUser, &u.Email, &u.Name, &u.PasswordHash, &u.Role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id_user, email, COALESCE(name, ''), password_hash, role
		FROM users
		WHERE id_user = $1
	`
	var u models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.IDUser, &u.Email, &u.Name, &u.PasswordHash, &u.Role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// IDByEmail resolves a user id from an email, for the shift import.
func (r *UserRepository) IDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id_user FROM users WHERE email = $1`, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}
