package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/ReportDesk/internal/models"
)

// PostgresAdminRepository implements administrator persistence using a PostgreSQL database.
type PostgresAdminRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAdminRepository creates a new PostgresAdminRepository with the given database connection.
func NewPostgresAdminRepository(db *sql.DB) *PostgresAdminRepository {
	return &PostgresAdminRepository{DB: db}
}

// GetByUsername returns the administrator with the given username,
// or ErrNotFound.
func (r *PostgresAdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`,
		username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &a, nil
}

// CreateIfMissing inserts an administrator unless the username is taken.
// It reports whether a row was inserted.
func (r *PostgresAdminRepository) CreateIfMissing(ctx context.Context, username, passwordHash string) (bool, error) {
	res, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO admins (username, password_hash) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING`,
		username, passwordHash,
	)
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return n > 0, nil
}

// UpdatePasswordHash overwrites the stored hash for username.
// It returns ErrNotFound if no such administrator exists.
func (r *PostgresAdminRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	res, err := r.DB.ExecContext(
		ctx,
		`UPDATE admins SET password_hash = $1 WHERE username = $2`,
		passwordHash, username,
	)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of administrators.
func (r *PostgresAdminRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
