package settingshandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paie/internal/domain/audit"
	"paie/internal/domain/auth"
	"paie/internal/domain/payroll"
	"paie/internal/domain/settings"
	"paie/internal/transport/http/api"
	"paie/internal/transport/http/middleware"
	"paie/internal/transport/http/shared"
)

type Service interface {
	Get(ctx context.Context) (settings.Company, error)
	Update(ctx context.Context, c settings.Company) (settings.Company, error)
	Headcount(ctx context.Context) (int, error)
}

type Handler struct {
	Service Service
	Rates   payroll.Rates
	Perms   middleware.PermissionChecker
	Audit   shared.AuditRecorder
}

func NewHandler(service Service, rates payroll.Rates, perms middleware.PermissionChecker, recorder shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Rates: rates, Perms: perms, Audit: recorder}
}

type companyRequest struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	CNSSNumber    string `json:"cnssNumber"`
	EmployeeCount int    `json:"employeeCount"`
	HeadcountMode string `json:"headcountMode"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermSettingsRead, h.Perms)).Get("/company", h.handleGetCompany)
		r.With(middleware.RequirePermission(auth.PermSettingsWrite, h.Perms)).Put("/company", h.handleUpdateCompany)
		r.With(middleware.RequirePermission(auth.PermSettingsRead, h.Perms)).Get("/rates", h.handleGetRates)
	})
}

func (h *Handler) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	company, err := h.Service.Get(r.Context())
	if errors.Is(err, settings.ErrNotInitialized) {
		api.Fail(w, http.StatusNotFound, "not_found", "company settings not initialized", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to load settings", reqID)
		return
	}
	headcount, err := h.Service.Headcount(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to resolve headcount", reqID)
		return
	}
	api.Success(w, map[string]any{
		"company":            company,
		"effectiveHeadcount": headcount,
	}, reqID)
}

func (h *Handler) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload companyRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	validator := shared.NewValidator()
	validator.Required("name", payload.Name, "is required")
	validator.Enum("headcountMode", payload.HeadcountMode, []string{settings.HeadcountDeclared, settings.HeadcountActive}, "must be declared or active")
	if payload.EmployeeCount < 0 {
		validator.Add("employeeCount", "must not be negative")
	}
	if validator.Reject(w, reqID) {
		return
	}

	before, err := h.Service.Get(r.Context())
	if err != nil && !errors.Is(err, settings.ErrNotInitialized) {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to load settings", reqID)
		return
	}
	updated, err := h.Service.Update(r.Context(), settings.Company{
		Name:          payload.Name,
		Address:       payload.Address,
		CNSSNumber:    payload.CNSSNumber,
		EmployeeCount: payload.EmployeeCount,
		HeadcountMode: payload.HeadcountMode,
	})
	if errors.Is(err, settings.ErrInvalid) {
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to save settings", reqID)
		return
	}

	shared.Audit(r, h.Audit, audit.Entry{ActorID: user.UserID, Action: "settings.company.update", EntityType: "company_settings", EntityID: "1", Before: before, After: updated})
	api.Success(w, updated, reqID)
}

func (h *Handler) handleGetRates(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Rates, middleware.GetRequestID(r.Context()))
}
