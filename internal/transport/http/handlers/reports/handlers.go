package reportshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"paie/internal/domain/auth"
	"paie/internal/domain/payroll"
	"paie/internal/domain/reports"
	"paie/internal/transport/http/api"
	"paie/internal/transport/http/middleware"
	"paie/internal/transport/http/shared"
)

type Service interface {
	Dashboard(ctx context.Context, period string) (reports.Dashboard, error)
	History(ctx context.Context, limit int) ([]reports.PeriodTotals, error)
	JobRuns(ctx context.Context, jobType string, limit, offset int) (reports.JobRunPage, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionChecker
	now     func() time.Time
}

func NewHandler(service Service, perms middleware.PermissionChecker) *Handler {
	return &Handler{Service: service, Perms: perms, now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/dashboard", h.handleDashboard)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/history", h.handleHistory)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/jobs", h.handleJobRuns)
	})
}

// handleDashboard defaults to the current month when no period is given.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	period := strings.TrimSpace(r.URL.Query().Get("period"))
	if period == "" {
		period = payroll.FormatPeriod(h.now())
	}
	dashboard, err := h.Service.Dashboard(r.Context(), period)
	if errors.Is(err, payroll.ErrInvalidPeriod) {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "period", Reason: err.Error()}})
		return
	}
	if err != nil {
		slog.Error("dashboard failed", "period", period, "err", err)
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to build dashboard", reqID)
		return
	}
	api.Success(w, dashboard, reqID)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.Service.History(r.Context(), limit)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "history_failed", "failed to load period history", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleJobRuns(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 20, 100)
	result, err := h.Service.JobRuns(r.Context(), strings.TrimSpace(r.URL.Query().Get("type")), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", middleware.GetRequestID(r.Context()))
		return
	}
	shared.SetTotal(w, result.Total)
	api.Success(w, result.Items, middleware.GetRequestID(r.Context()))
}
