package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/ReportDesk/internal/models"
	"github.com/atinyakov/ReportDesk/internal/repository"
)

// ReportRepository defines the persistence operations needed by the ReportService.
type ReportRepository interface {
	// WithinTx runs fn so that repository calls made with its context share one transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetByNumber(ctx context.Context, number string) (*models.Report, error)
	GetByID(ctx context.Context, id int64) (*models.Report, error)
	// GetByIDForUpdate is GetByID with a row lock held until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Report, error)
	// ExistsByNumber reports whether a report other than excludeID holds number.
	ExistsByNumber(ctx context.Context, number string, excludeID int64) (bool, error)
	List(ctx context.Context, page models.Page) ([]models.Report, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, r models.Report) (*models.Report, error)
	Update(ctx context.Context, r models.Report) (*models.Report, error)
	Delete(ctx context.Context, id int64) error
}

// ReportService implements report lookup and administration.
type ReportService struct {
	repo ReportRepository
}

// NewReportService constructs a ReportService with the provided ReportRepository.
func NewReportService(repo ReportRepository) *ReportService {
	return &ReportService{repo: repo}
}

// Lookup finds a report by its public report number. Surrounding whitespace
// is ignored.
func (s *ReportService) Lookup(ctx context.Context, number string) (*models.Report, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrEmptyReportNumber
	}
	r, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, translate("lookup report", err)
	}
	return r, nil
}

// List returns one page of reports, newest first.
func (s *ReportService) List(ctx context.Context, page models.Page) (*models.ReportList, error) {
	page = page.Normalize()

	data, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return &models.ReportList{Data: data, Pagination: models.NewPagination(page, total)}, nil
}

// Get returns the report with the given id.
func (s *ReportService) Get(ctx context.Context, id int64) (*models.Report, error) {
	if id < 1 {
		return nil, ErrInvalidID
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get report", err)
	}
	return r, nil
}

// Stats returns the total number of reports.
func (s *ReportService) Stats(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("report stats: %w", err)
	}
	return n, nil
}

// Create validates and stores a new report. A report number already in use
// yields ErrDuplicateReportNumber.
func (s *ReportService) Create(ctx context.Context, r models.Report) (*models.Report, error) {
	r = normalize(r)
	if err := validate(r); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByNumber(ctx, r.ReportNumber, 0)
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	if exists {
		return nil, ErrDuplicateReportNumber
	}

	created, err := s.repo.Create(ctx, r)
	if err != nil {
		return nil, translate("create report", err)
	}
	return created, nil
}

// Update applies patch to the report with the given id. Changing the report
// number re-checks uniqueness against every other report. The read, the check
// and the write share one transaction.
func (s *ReportService) Update(ctx context.Context, id int64, patch models.ReportPatch) (*models.Report, error) {
	if id < 1 {
		return nil, ErrInvalidID
	}

	var updated *models.Report
	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		next := normalize(patch.Apply(*current))
		if err := validate(next); err != nil {
			return err
		}

		if next.ReportNumber != current.ReportNumber {
			exists, err := s.repo.ExistsByNumber(ctx, next.ReportNumber, id)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateReportNumber
			}
		}

		if patch.Empty() {
			updated = current
			return nil
		}
		updated, err = s.repo.Update(ctx, next)
		return err
	})
	if err != nil {
		return nil, translate("update report", err)
	}
	return updated, nil
}

// Delete removes the report row. The stored file stays where it is.
func (s *ReportService) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrInvalidID
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translate("delete report", err)
	}
	return nil
}

func normalize(r models.Report) models.Report {
	r.ReportNumber = strings.TrimSpace(r.ReportNumber)
	r.EquipmentName = strings.TrimSpace(r.EquipmentName)
	r.ClientCompany = strings.TrimSpace(r.ClientCompany)
	r.UserCompany = strings.TrimSpace(r.UserCompany)
	r.FileURL = strings.TrimSpace(r.FileURL)
	return r
}

func validate(r models.Report) error {
	var missing []string
	if r.ReportNumber == "" {
		missing = append(missing, "reportNumber")
	}
	if r.ReportType == "" {
		missing = append(missing, "reportType")
	}
	if r.InspectionDate.IsZero() {
		missing = append(missing, "inspectionDate")
	}
	if r.EquipmentName == "" {
		missing = append(missing, "equipmentName")
	}
	if r.ClientCompany == "" {
		missing = append(missing, "clientCompany")
	}
	if r.UserCompany == "" {
		missing = append(missing, "userCompany")
	}
	if r.FileURL == "" {
		missing = append(missing, "fileUrl")
	}
	if r.FileType == "" {
		missing = append(missing, "fileType")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if !r.ReportType.Valid() {
		return fmt.Errorf("%w: unknown reportType %q", ErrValidation, r.ReportType)
	}
	if !r.FileType.Valid() {
		return fmt.Errorf("%w: unknown fileType %q", ErrValidation, r.FileType)
	}
	return nil
}

// translate maps repository errors onto service errors and wraps the rest.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateReportNumber
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicateReportNumber),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidID):
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
