package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/ReportDesk/internal/models"
	"github.com/atinyakov/ReportDesk/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReportService defines the report operations used by the handlers.
type ReportService interface {
	Lookup(ctx context.Context, number string) (*models.Report, error)
	List(ctx context.Context, page models.Page) (*models.ReportList, error)
	Get(ctx context.Context, id int64) (*models.Report, error)
	Stats(ctx context.Context) (int64, error)
	Create(ctx context.Context, r models.Report) (*models.Report, error)
	Update(ctx context.Context, id int64, patch models.ReportPatch) (*models.Report, error)
	Delete(ctx context.Context, id int64) error
}

// ReportHandler serves the public lookup and the admin report API.
type ReportHandler struct {
	Reports ReportService
	Log     *zap.Logger
}

// StatsResponse is returned by GET /api/admin/stats.
type StatsResponse struct {
	TotalReports int64 `json:"totalReports"`
}

// CreateReportRequest is the body of POST /api/admin/reports.
type CreateReportRequest struct {
	ReportNumber   string            `json:"reportNumber"`
	ReportType     models.ReportType `json:"reportType"`
	InspectionDate string            `json:"inspectionDate"`
	EquipmentName  string            `json:"equipmentName"`
	ClientCompany  string            `json:"clientCompany"`
	UserCompany    string            `json:"userCompany"`
	FileURL        string            `json:"fileUrl"`
	FileType       models.FileType   `json:"fileType"`
}

// UpdateReportRequest is the body of PUT /api/admin/reports/{id}.
// Omitted fields keep their stored values.
type UpdateReportRequest struct {
	ReportNumber   *string            `json:"reportNumber"`
	ReportType     *models.ReportType `json:"reportType"`
	InspectionDate *string            `json:"inspectionDate"`
	EquipmentName  *string            `json:"equipmentName"`
	ClientCompany  *string            `json:"clientCompany"`
	UserCompany    *string            `json:"userCompany"`
	FileURL        *string            `json:"fileUrl"`
	FileType       *models.FileType   `json:"fileType"`
}

var errInvalidDate = errors.New("inspectionDate must be RFC3339 or YYYY-MM-DD")

// parseDate accepts full RFC3339 timestamps and plain dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, errInvalidDate
}

func (req CreateReportRequest) toModel() (models.Report, error) {
	date, err := parseDate(req.InspectionDate)
	if err != nil {
		return models.Report{}, err
	}
	return models.Report{
		ReportNumber:   req.ReportNumber,
		ReportType:     req.ReportType,
		InspectionDate: date,
		EquipmentName:  req.EquipmentName,
		ClientCompany:  req.ClientCompany,
		UserCompany:    req.UserCompany,
		FileURL:        req.FileURL,
		FileType:       req.FileType,
	}, nil
}

func (req UpdateReportRequest) toPatch() (models.ReportPatch, error) {
	patch := models.ReportPatch{
		ReportNumber:  req.ReportNumber,
		ReportType:    req.ReportType,
		EquipmentName: req.EquipmentName,
		ClientCompany: req.ClientCompany,
		UserCompany:   req.UserCompany,
		FileURL:       req.FileURL,
		FileType:      req.FileType,
	}
	if req.InspectionDate != nil {
		date, err := parseDate(*req.InspectionDate)
		if err != nil {
			return models.ReportPatch{}, err
		}
		patch.InspectionDate = &date
	}
	return patch, nil
}

// Lookup handles the public GET /api/reports/{reportNumber}.
func (h *ReportHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "reportNumber")
	if unescaped, err := url.PathUnescape(number); err == nil {
		number = unescaped
	}

	report, err := h.Reports.Lookup(r.Context(), number)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found, please check the report number")
			return
		}
		writeServiceError(w, h.Log, "lookup report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Stats handles GET /api/admin/stats.
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	total, err := h.Reports.Stats(r.Context())
	if err != nil {
		writeServiceError(w, h.Log, "report stats", err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{TotalReports: total})
}

// List handles GET /api/admin/reports?page=&limit=.
// Non-numeric values fall back to the defaults.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, err := h.Reports.List(r.Context(), models.Page{Page: page, Limit: limit})
	if err != nil {
		writeServiceError(w, h.Log, "list reports", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/admin/reports/{id}.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	report, err := h.Reports.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.Log, "get report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Create handles POST /api/admin/reports.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.Reports.Create(r.Context(), report)
	if err != nil {
		writeServiceError(w, h.Log, "create report", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/admin/reports/{id}.
func (h *ReportHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	var req UpdateReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.Reports.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, h.Log, "update report", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/admin/reports/{id}. The stored file is kept.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	if err := h.Reports.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.Log, "delete report", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("report %d deleted", id)})
}

func reportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, service.ErrInvalidID.Error())
		return 0, false
	}
	return id, true
}
