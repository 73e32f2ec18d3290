package employeeshandler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"paie/internal/domain/audit"
	"paie/internal/domain/auth"
	"paie/internal/domain/employee"
	"paie/internal/domain/payroll"
	"paie/internal/domain/spreadsheet"
	"paie/internal/transport/http/api"
	"paie/internal/transport/http/middleware"
	"paie/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, emp employee.Employee) (employee.Employee, error)
	Update(ctx context.Context, id string, emp employee.Employee) (employee.Employee, error)
	Get(ctx context.Context, id string) (employee.Employee, error)
	List(ctx context.Context, filter employee.Filter, limit, offset int) ([]employee.Employee, int, error)
	Delete(ctx context.Context, id string) error
}

type Importer interface {
	ImportEmployees(ctx context.Context, r io.Reader, format string) (spreadsheet.ImportReport, error)
}

type Handler struct {
	Service        Service
	Importer       Importer
	Perms          middleware.PermissionChecker
	Audit          shared.AuditRecorder
	MaxImportBytes int64
}

func NewHandler(service Service, importer Importer, perms middleware.PermissionChecker, recorder shared.AuditRecorder, maxImportBytes int64) *Handler {
	return &Handler{Service: service, Importer: importer, Perms: perms, Audit: recorder, MaxImportBytes: maxImportBytes}
}

type employeeRequest struct {
	Matricule        string                   `json:"matricule"`
	FirstName        string                   `json:"firstName"`
	LastName         string                   `json:"lastName"`
	Email            string                   `json:"email"`
	Position         string                   `json:"position"`
	Department       string                   `json:"department"`
	HireDate         string                   `json:"hireDate"`
	Status           string                   `json:"status"`
	BaseSalary       int64                    `json:"baseSalary"`
	Allowances       int64                    `json:"allowances"`
	ExemptAllowances payroll.ExemptAllowances `json:"exemptAllowances"`
	BankAccount      string                   `json:"bankAccount"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/import", h.handleImport)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/{employeeID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Delete("/{employeeID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	filter := employee.Filter{
		Status: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	validator := shared.NewValidator()
	validator.Enum("status", filter.Status, []string{employee.StatusActive, employee.StatusInactive}, "must be active or inactive")
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	items, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	for i := range items {
		employee.FilterFields(&items[i], user)
	}
	if items == nil {
		items = []employee.Employee{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	emp, err := h.Service.Get(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	employee.FilterFields(&emp, user)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	emp, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.Service.Create(r.Context(), emp)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.Entry{ActorID: user.UserID, Action: "employee.create", EntityType: "employee", EntityID: created.ID, After: masked(created)})
	employee.FilterFields(&created, user)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "employeeID")
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	emp, ok := h.decode(w, r)
	if !ok {
		return
	}
	if before.BankAccount != "" && emp.BankAccount == employee.MaskAccount(before.BankAccount) {
		emp.BankAccount = before.BankAccount
	}
	updated, err := h.Service.Update(r.Context(), id, emp)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.Entry{ActorID: user.UserID, Action: "employee.update", EntityType: "employee", EntityID: id, Before: masked(before), After: masked(updated)})
	employee.FilterFields(&updated, user)
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "employeeID")
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.Entry{ActorID: user.UserID, Action: "employee.delete", EntityType: "employee", EntityID: id})
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	file, format, ok := shared.Upload(w, r, "file", h.MaxImportBytes, reqID)
	if !ok {
		return
	}
	defer file.Close()

	report, err := h.Importer.ImportEmployees(r.Context(), file, format)
	switch {
	case errors.Is(err, spreadsheet.ErrEmptySheet), errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		api.Fail(w, http.StatusBadRequest, "invalid_file", err.Error(), reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "import_failed", "employee import failed", reqID)
		return
	}

	shared.Audit(r, h.Audit, audit.Entry{ActorID: user.UserID, Action: "employee.import", EntityType: "employee", After: report})
	api.Success(w, report, reqID)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (employee.Employee, bool) {
	reqID := middleware.GetRequestID(r.Context())
	var payload employeeRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return employee.Employee{}, false
	}
	emp := employee.Employee{
		Matricule:        payload.Matricule,
		FirstName:        payload.FirstName,
		LastName:         payload.LastName,
		Email:            payload.Email,
		Position:         payload.Position,
		Department:       payload.Department,
		Status:           payload.Status,
		BaseSalary:       payload.BaseSalary,
		Allowances:       payload.Allowances,
		ExemptAllowances: payload.ExemptAllowances,
		BankAccount:      payload.BankAccount,
	}
	validator := shared.NewValidator()
	validator.Enum("status", payload.Status, []string{employee.StatusActive, employee.StatusInactive}, "must be active or inactive")
	if strings.TrimSpace(payload.HireDate) != "" {
		if d, ok := validator.Date("hireDate", payload.HireDate); ok {
			day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
			emp.HireDate = &day
		}
	}
	if validator.Reject(w, reqID) {
		return employee.Employee{}, false
	}
	return emp, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	var verr *employee.ValidationError
	switch {
	case errors.As(err, &verr):
		issues := make([]shared.ValidationIssue, 0, len(verr.Issues))
		for _, issue := range verr.Issues {
			issues = append(issues, shared.ValidationIssue{Field: issue.Field, Reason: issue.Reason})
		}
		shared.FailValidation(w, reqID, issues)
	case errors.Is(err, employee.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, employee.ErrDuplicate):
		api.Fail(w, http.StatusConflict, "duplicate_matricule", "matricule already exists", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "employee_store_failed", "employee storage failed", reqID)
	}
}

func masked(emp employee.Employee) employee.Employee {
	emp.BankAccount = employee.MaskAccount(emp.BankAccount)
	return emp
}
