package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/ReportDesk/internal/models"
)

const reportColumns = `id, report_number, report_type, inspection_date, equipment_name,
	client_company, user_company, file_url, file_type, created_at, updated_at`

// PostgresReportRepository implements report persistence against a PostgreSQL database.
// Every method runs inside the transaction opened by WithinTx when ctx carries one.
type PostgresReportRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresReportRepository creates a new PostgresReportRepository using the provided *sql.DB.
func NewPostgresReportRepository(db *sql.DB) *PostgresReportRepository {
	return &PostgresReportRepository{DB: db}
}

// WithinTx runs fn in a single transaction shared by all repository calls
// made with the context passed to fn.
func (r *PostgresReportRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.DB, fn)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(s rowScanner) (*models.Report, error) {
	var rep models.Report
	err := s.Scan(
		&rep.ID, &rep.ReportNumber, &rep.ReportType, &rep.InspectionDate, &rep.EquipmentName,
		&rep.ClientCompany, &rep.UserCompany, &rep.FileURL, &rep.FileType, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *PostgresReportRepository) getOne(ctx context.Context, op, query string, args ...any) (*models.Report, error) {
	rep, err := scanReport(conn(ctx, r.DB).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rep, nil
}

// GetByNumber fetches a report by its business-facing report number.
func (r *PostgresReportRepository) GetByNumber(ctx context.Context, number string) (*models.Report, error) {
	return r.getOne(ctx, "get report by number",
		`SELECT `+reportColumns+` FROM reports WHERE report_number = $1`, number)
}

// GetByID fetches a report by internal id.
func (r *PostgresReportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	return r.getOne(ctx, "get report",
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
}

// GetByIDForUpdate fetches a report and locks its row until the surrounding
// transaction ends.
func (r *PostgresReportRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Report, error) {
	return r.getOne(ctx, "lock report",
		`SELECT `+reportColumns+` FROM reports WHERE id = $1 FOR UPDATE`, id)
}

// ExistsByNumber reports whether a report other than excludeID holds number.
// Pass 0 to check against every report.
func (r *PostgresReportRepository) ExistsByNumber(ctx context.Context, number string, excludeID int64) (bool, error) {
	var exists bool
	err := conn(ctx, r.DB).QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM reports WHERE report_number = $1 AND id <> $2)`,
		number, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check report number: %w", err)
	}
	return exists, nil
}

// List returns one page of reports, newest first.
func (r *PostgresReportRepository) List(ctx context.Context, page models.Page) ([]models.Report, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.Report, 0, page.Limit)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Count returns the total number of reports.
func (r *PostgresReportRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := conn(ctx, r.DB).QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

// Create inserts rep and returns the stored row. A taken report number
// yields ErrDuplicate.
func (r *PostgresReportRepository) Create(ctx context.Context, rep models.Report) (*models.Report, error) {
	created, err := scanReport(conn(ctx, r.DB).QueryRowContext(ctx, `
		INSERT INTO reports (report_number, report_type, inspection_date, equipment_name,
			client_company, user_company, file_url, file_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+reportColumns,
		rep.ReportNumber, rep.ReportType, rep.InspectionDate, rep.EquipmentName,
		rep.ClientCompany, rep.UserCompany, rep.FileURL, rep.FileType,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create report: %w", err)
	}
	return created, nil
}

// Update overwrites every mutable column of the report identified by rep.ID.
func (r *PostgresReportRepository) Update(ctx context.Context, rep models.Report) (*models.Report, error) {
	updated, err := scanReport(conn(ctx, r.DB).QueryRowContext(ctx, `
		UPDATE reports SET
			report_number = $1, report_type = $2, inspection_date = $3, equipment_name = $4,
			client_company = $5, user_company = $6, file_url = $7, file_type = $8, updated_at = now()
		WHERE id = $9
		RETURNING `+reportColumns,
		rep.ReportNumber, rep.ReportType, rep.InspectionDate, rep.EquipmentName,
		rep.ClientCompany, rep.UserCompany, rep.FileURL, rep.FileType, rep.ID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update report: %w", err)
	}
	return updated, nil
}

// Delete removes the report row. The stored file is left untouched.
func (r *PostgresReportRepository) Delete(ctx context.Context, id int64) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
