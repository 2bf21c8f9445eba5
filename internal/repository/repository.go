// Package repository provides PostgreSQL persistence for administrators and reports.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/atinyakov/ReportDesk/internal/db"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type txKey struct{}

// conn returns the transaction bound to ctx by withTx, or fallback.
func conn(ctx context.Context, fallback *sql.DB) db.DBTX {
	if tx, ok := ctx.Value(txKey{}).(db.DBTX); ok {
		return tx
	}
	return fallback
}

// withTx runs fn in a transaction carried by the context. Nested calls
// reuse the outer transaction.
func withTx(ctx context.Context, sqlDB *sql.DB, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(db.DBTX); ok {
		return fn(ctx)
	}
	return db.WithTx(ctx, sqlDB, func(ctx context.Context, tx db.DBTX) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
