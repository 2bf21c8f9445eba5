package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupAdminMock(t *testing.T) (*PostgresAdminRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresAdminRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestGetByUsername_Found(t *testing.T) {
	repo, mock, cleanup := setupAdminMock(t)
	defer cleanup()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`)).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
			AddRow(int64(1), "admin", "$2a$10$hash", created))

	a, err := repo.GetByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != 1 || a.Username != "admin" || a.PasswordHash != "$2a$10$hash" || !a.CreatedAt.Equal(created) {
		t.Errorf("unexpected admin %+v", a)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, cleanup := setupAdminMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM admins WHERE username = $1`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}))

	_, err := repo.GetByUsername(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByUsername_Error(t *testing.T) {
	repo, mock, cleanup := setupAdminMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM admins WHERE username = $1`)).
		WithArgs("admin").
		WillReturnError(errors.New("query failed"))

	_, err := repo.GetByUsername(context.Background(), "admin")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected wrapped query error, got %v", err)
	}
}

func TestCreateIfMissing(t *testing.T) {
	cases := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"inserted", 1, true},
		{"already present", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, cleanup := setupAdminMock(t)
			defer cleanup()

			mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO admins (username, password_hash) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING`)).
				WithArgs("admin", "hash").
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			got, err := repo.CreateIfMissing(context.Background(), "admin", "hash")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("CreateIfMissing = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestUpdatePasswordHash(t *testing.T) {
	repo, mock, cleanup := setupAdminMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE admins SET password_hash = $1 WHERE username = $2`)).
		WithArgs("newhash", "admin").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE admins SET password_hash = $1 WHERE username = $2`)).
		WithArgs("newhash", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdatePasswordHash(context.Background(), "admin", "newhash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.UpdatePasswordHash(context.Background(), "ghost", "newhash"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAdminCount(t *testing.T) {
	repo, mock, cleanup := setupAdminMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM admins`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d; want 2", n)
	}
}
