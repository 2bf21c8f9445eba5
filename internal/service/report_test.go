package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/atinyakov/ReportDesk/internal/models"
	"github.com/atinyakov/ReportDesk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memReports is an in-memory ReportRepository.
type memReports struct {
	rows   map[int64]models.Report
	nextID int64
	clock  time.Time

	txCalls     int
	updateCalls int
	failCount   error
}

func newMemReports() *memReports {
	return &memReports{
		rows:  map[int64]models.Report{},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memReports) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txCalls++
	return fn(ctx)
}

func (m *memReports) GetByNumber(ctx context.Context, number string) (*models.Report, error) {
	for _, r := range m.rows {
		if r.ReportNumber == number {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memReports) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memReports) GetByIDForUpdate(ctx context.Context, id int64) (*models.Report, error) {
	return m.GetByID(ctx, id)
}

func (m *memReports) ExistsByNumber(ctx context.Context, number string, excludeID int64) (bool, error) {
	for id, r := range m.rows {
		if r.ReportNumber == number && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memReports) sorted() []models.Report {
	out := make([]models.Report, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memReports) List(ctx context.Context, page models.Page) ([]models.Report, error) {
	all := m.sorted()
	start := min(page.Offset(), len(all))
	end := min(start+page.Limit, len(all))
	return all[start:end], nil
}

func (m *memReports) Count(ctx context.Context) (int64, error) {
	if m.failCount != nil {
		return 0, m.failCount
	}
	return int64(len(m.rows)), nil
}

func (m *memReports) Create(ctx context.Context, r models.Report) (*models.Report, error) {
	m.nextID++
	m.clock = m.clock.Add(time.Minute)
	r.ID, r.CreatedAt, r.UpdatedAt = m.nextID, m.clock, m.clock
	m.rows[r.ID] = r
	return &r, nil
}

func (m *memReports) Update(ctx context.Context, r models.Report) (*models.Report, error) {
	m.updateCalls++
	if _, ok := m.rows[r.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	m.rows[r.ID] = r
	return &r, nil
}

func (m *memReports) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func newReport(number string) models.Report {
	return models.Report{
		ReportNumber:   number,
		ReportType:     models.InspectionCert,
		InspectionDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		EquipmentName:  "Boiler #2",
		ClientCompany:  "Acme",
		UserCompany:    "Acme Plant",
		FileURL:        "reports/2024/03/1709510400000.pdf",
		FileType:       models.FilePDF,
	}
}

func seeded(t *testing.T, numbers ...string) (*ReportService, *memReports) {
	t.Helper()
	repo := newMemReports()
	svc := NewReportService(repo)
	for _, n := range numbers {
		_, err := svc.Create(context.Background(), newReport(n))
		require.NoError(t, err)
	}
	return svc, repo
}

func TestLookup(t *testing.T) {
	svc, _ := seeded(t, "RPT-001")

	got, err := svc.Lookup(context.Background(), "  RPT-001 ")
	require.NoError(t, err)
	assert.Equal(t, "RPT-001", got.ReportNumber)
	assert.Equal(t, "Boiler #2", got.EquipmentName)

	_, err = svc.Lookup(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyReportNumber)

	_, err = svc.Lookup(context.Background(), "RPT-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_SecondPageOf25(t *testing.T) {
	numbers := make([]string, 25)
	for i := range numbers {
		numbers[i] = fmt.Sprintf("RPT-%03d", i+1)
	}
	svc, _ := seeded(t, numbers...)

	res, err := svc.List(context.Background(), models.Page{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Data, 10)
	assert.Equal(t, models.Pagination{Page: 2, Limit: 10, Total: 25, TotalPages: 3}, res.Pagination)
	// newest first: page 2 starts at the 11th newest
	assert.Equal(t, "RPT-015", res.Data[0].ReportNumber)
}

func TestList_DefaultsAndErrors(t *testing.T) {
	svc, repo := seeded(t, "A")

	res, err := svc.List(context.Background(), models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pagination.Page)
	assert.Equal(t, 20, res.Pagination.Limit)

	repo.failCount = errors.New("count failed")
	_, err = svc.List(context.Background(), models.Page{})
	assert.ErrorIs(t, err, repo.failCount)

	_, err = svc.Stats(context.Background())
	assert.ErrorIs(t, err, repo.failCount)
}

func TestGet(t *testing.T) {
	svc, _ := seeded(t, "RPT-1")

	got, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "RPT-1", got.ReportNumber)

	_, err = svc.Get(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = svc.Get(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreate_DuplicateAlwaysConflicts(t *testing.T) {
	svc, repo := seeded(t, "RPT-1")

	other := newReport("RPT-1")
	other.ReportType = models.InstallationInspection
	other.EquipmentName = "Elevator"
	other.FileType = models.FilePNG

	_, err := svc.Create(context.Background(), other)
	assert.ErrorIs(t, err, ErrDuplicateReportNumber)
	assert.Len(t, repo.rows, 1)
}

func TestCreate_StoreRaceMapsToConflict(t *testing.T) {
	repo := &racingRepo{memReports: newMemReports()}
	svc := NewReportService(repo)

	_, err := svc.Create(context.Background(), newReport("RPT-9"))
	assert.ErrorIs(t, err, ErrDuplicateReportNumber)
}

// racingRepo passes the existence check and then hits the unique constraint.
type racingRepo struct{ *memReports }

func (r *racingRepo) Create(ctx context.Context, rep models.Report) (*models.Report, error) {
	return nil, repository.ErrDuplicate
}

func TestCreate_Validation(t *testing.T) {
	svc, repo := seeded(t)

	cases := map[string]func(r *models.Report){
		"missing number":    func(r *models.Report) { r.ReportNumber = " " },
		"missing date":      func(r *models.Report) { r.InspectionDate = time.Time{} },
		"missing file":      func(r *models.Report) { r.FileURL = "" },
		"unknown type":      func(r *models.Report) { r.ReportType = "SAFETY" },
		"unknown file type": func(r *models.Report) { r.FileType = "GIF" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := newReport("RPT-V")
			mutate(&r)
			_, err := svc.Create(context.Background(), r)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, repo.rows)
}

func TestUpdate_ReportNumberUniqueness(t *testing.T) {
	svc, repo := seeded(t, "RPT-1", "RPT-2")

	taken := "RPT-2"
	_, err := svc.Update(context.Background(), 1, models.ReportPatch{ReportNumber: &taken})
	assert.ErrorIs(t, err, ErrDuplicateReportNumber)
	assert.Equal(t, "RPT-1", repo.rows[1].ReportNumber)

	own := "RPT-1"
	got, err := svc.Update(context.Background(), 1, models.ReportPatch{ReportNumber: &own})
	require.NoError(t, err)
	assert.Equal(t, "RPT-1", got.ReportNumber)

	fresh := "RPT-3"
	got, err = svc.Update(context.Background(), 1, models.ReportPatch{ReportNumber: &fresh})
	require.NoError(t, err)
	assert.Equal(t, "RPT-3", got.ReportNumber)
	assert.Equal(t, 3, repo.txCalls)
}

func TestUpdate_PartialKeepsOtherFields(t *testing.T) {
	svc, repo := seeded(t, "RPT-1")
	before := repo.rows[1]

	name := "Boiler #3"
	got, err := svc.Update(context.Background(), 1, models.ReportPatch{EquipmentName: &name})
	require.NoError(t, err)

	assert.Equal(t, "Boiler #3", got.EquipmentName)
	assert.Equal(t, before.ReportNumber, got.ReportNumber)
	assert.Equal(t, before.FileURL, got.FileURL)
	assert.Equal(t, before.ClientCompany, got.ClientCompany)
	assert.True(t, before.InspectionDate.Equal(got.InspectionDate))
}

func TestUpdate_Errors(t *testing.T) {
	svc, repo := seeded(t, "RPT-1")

	_, err := svc.Update(context.Background(), -1, models.ReportPatch{})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = svc.Update(context.Background(), 42, models.ReportPatch{})
	assert.ErrorIs(t, err, ErrNotFound)

	bad := models.ReportType("NOPE")
	_, err = svc.Update(context.Background(), 1, models.ReportPatch{ReportType: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := svc.Update(context.Background(), 1, models.ReportPatch{})
	require.NoError(t, err)
	assert.Equal(t, "RPT-1", got.ReportNumber)
	assert.Zero(t, repo.updateCalls)
}

func TestDelete(t *testing.T) {
	svc, repo := seeded(t, "RPT-1")

	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.Empty(t, repo.rows)

	assert.ErrorIs(t, svc.Delete(context.Background(), 1), ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), 0), ErrInvalidID)
}

func TestStats(t *testing.T) {
	svc, _ := seeded(t, "a", "b", "c")

	n, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
