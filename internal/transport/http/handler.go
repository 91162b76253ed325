package http

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "impactetl/internal/errors"
)

// ReportHandler exposes the published artifacts as JSON.
type ReportHandler struct {
	service *ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a handler over the report service.
func NewReportHandler(service *ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With(slog.String("component", "report_handler")),
	}
}

// Routes returns the report API routes.
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/master", h.GetMaster)
	r.Get("/programs", h.GetPrograms)
	r.Get("/quality", h.GetQuality)

	// Raw artifact downloads for CSV consumers.
	r.Get("/master.csv", h.DownloadMaster)
	r.Get("/quality.csv", h.DownloadQuality)

	r.Route("/participants/{participantID}", func(r chi.Router) {
		r.Get("/", h.GetParticipant)
	})

	return r
}

// GetMaster handles GET /master with optional query filters: city,
// program_id, min_attendance, min_satisfaction, from, to.
func (h *ReportHandler) GetMaster(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	rows, err := h.service.MasterRows(r.Context(), filter)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   rows,
		"count":  len(rows),
	})
}

// GetPrograms handles GET /programs.
func (h *ReportHandler) GetPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.service.Programs(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   programs,
		"count":  len(programs),
	})
}

// GetQuality handles GET /quality.
func (h *ReportHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.QualityReport(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   reports,
		"count":  len(reports),
	})
}

// GetParticipant handles GET /participants/{participantID}: every master
// row for one participant across programs.
func (h *ReportHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	participantID := chi.URLParam(r, "participantID")
	if participantID == "" {
		h.renderError(w, r, apierrors.NewValidationError("participant ID is required"))
		return
	}

	rows, err := h.service.MasterRows(r.Context(), MasterFilter{ParticipantID: participantID})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if len(rows) == 0 {
		h.renderError(w, r, apierrors.NewNotFoundError("participant "+participantID))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   rows,
		"count":  len(rows),
	})
}

// DownloadMaster handles GET /master.csv: the published file verbatim.
func (h *ReportHandler) DownloadMaster(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, h.service.paths.MasterDatasetPath(), "master dataset")
}

// DownloadQuality handles GET /quality.csv.
func (h *ReportHandler) DownloadQuality(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, h.service.paths.QualityReportPath(), "quality report")
}

func (h *ReportHandler) serveArtifact(w http.ResponseWriter, r *http.Request, path, name string) {
	if _, err := os.Stat(path); err != nil {
		h.renderError(w, r, apierrors.NewNotFoundError(name))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	http.ServeFile(w, r, path)
}

func filterFromQuery(r *http.Request) (MasterFilter, error) {
	q := r.URL.Query()
	filter := MasterFilter{
		City:      q.Get("city"),
		ProgramID: q.Get("program_id"),
	}

	if v := q.Get("min_attendance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return filter, apierrors.NewValidationError("min_attendance must be a number in [0, 1]")
		}
		filter.MinAttendance = &f
	}
	if v := q.Get("min_satisfaction"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 1 || f > 5 {
			return filter, apierrors.NewValidationError("min_satisfaction must be a number in [1, 5]")
		}
		filter.MinSatisfaction = &f
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, apierrors.NewValidationError("from must be a YYYY-MM-DD date")
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, apierrors.NewValidationError("to must be a YYYY-MM-DD date")
		}
		filter.To = &t
	}
	return filter, nil
}

// renderError maps application errors to HTTP statuses and emits a JSON
// error body.
func (h *ReportHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	errType := "INTERNAL"

	switch {
	case apierrors.IsType(err, apierrors.ErrTypeNotFound):
		status = http.StatusNotFound
		errType = string(apierrors.ErrTypeNotFound)
	case apierrors.IsType(err, apierrors.ErrTypeValidation):
		status = http.StatusBadRequest
		errType = string(apierrors.ErrTypeValidation)
	case apierrors.IsType(err, apierrors.ErrTypeParsing):
		status = http.StatusInternalServerError
		errType = string(apierrors.ErrTypeParsing)
	case apierrors.IsType(err, apierrors.ErrTypeStorage):
		status = http.StatusServiceUnavailable
		errType = string(apierrors.ErrTypeStorage)
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]interface{}{
		"status": "error",
		"type":   errType,
		"error":  err.Error(),
	})
}
