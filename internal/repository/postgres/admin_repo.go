package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xela07ax/devguard/internal/domain"
)

func (r *Repo) GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	query := `SELECT id, email, password_hash, created_at FROM admin_users WHERE email = $1`

	u := &domain.AdminUser{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to fetch admin: %w", err)
	}
	return u, nil
}

func (r *Repo) GetAdminByID(ctx context.Context, id string) (*domain.AdminUser, error) {
	query := `SELECT id, email, password_hash, created_at FROM admin_users WHERE id = $1`

	u := &domain.AdminUser{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to fetch admin: %w", err)
	}
	return u, nil
}

func (r *Repo) CreateAdmin(ctx context.Context, u *domain.AdminUser) (*domain.AdminUser, error) {
	query := `INSERT INTO admin_users (id, email, password_hash)
	          VALUES ($1, $2, $3)
	          RETURNING id, email, created_at`

	out := &domain.AdminUser{}
	err := r.db.QueryRowContext(ctx, query, u.ID, u.Email, u.PasswordHash).
		Scan(&out.ID, &out.Email, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create admin: %w", err)
	}
	return out, nil
}
