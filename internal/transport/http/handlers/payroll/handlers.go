package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"paie/internal/domain/audit"
	"paie/internal/domain/auth"
	"paie/internal/domain/employee"
	"paie/internal/domain/payroll"
	"paie/internal/domain/payslip"
	"paie/internal/domain/spreadsheet"
	"paie/internal/transport/http/api"
	"paie/internal/transport/http/middleware"
	"paie/internal/transport/http/shared"
)

const endpointPeriodRun = "payroll.period.run"

type Service interface {
	Simulate(in payroll.Input) (payroll.Result, error)
	Compute(ctx context.Context, actorID, employeeID, period string, variable payroll.VariablePay) (payroll.Record, error)
	RunPeriod(ctx context.Context, actorID, period string, variables map[string]payroll.VariablePay) (payroll.RunSummary, error)
	StartPeriodRun(actorID, period string, variables map[string]payroll.VariablePay) error
	Get(ctx context.Context, id string) (payroll.Record, error)
	List(ctx context.Context, filter payroll.RecordFilter, limit, offset int) ([]payroll.Record, int, error)
	PeriodRecords(ctx context.Context, period string) ([]payroll.Record, error)
	Delete(ctx context.Context, id string) (payroll.Record, error)
}

type Payslips interface {
	Fetch(ctx context.Context, recordID string) (payroll.Record, []byte, error)
}

type IdempotencyStore interface {
	Check(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error
}

type PayrollRecorder interface {
	RecordPayroll(computed, failed int)
}

type Handler struct {
	Service        Service
	Payslips       Payslips
	Perms          middleware.PermissionChecker
	Audit          shared.AuditRecorder
	Idempotency    IdempotencyStore
	Metrics        PayrollRecorder
	MaxImportBytes int64
}

func NewHandler(service Service, payslips Payslips, perms middleware.PermissionChecker, recorder shared.AuditRecorder, idem IdempotencyStore, metrics PayrollRecorder, maxImportBytes int64) *Handler {
	return &Handler{
		Service:        service,
		Payslips:       payslips,
		Perms:          perms,
		Audit:          recorder,
		Idempotency:    idem,
		Metrics:        metrics,
		MaxImportBytes: maxImportBytes,
	}
}

type computeRequest struct {
	EmployeeID string `json:"employeeId"`
	Period     string `json:"period"`
	payroll.VariablePay
}

type runRequest struct {
	Async     bool                           `json:"async"`
	Variables map[string]payroll.VariablePay `json:"variables"`
}

type runAccepted struct {
	Period string `json:"period"`
	Status string `json:"status"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Post("/simulate", h.handleSimulate)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/records", h.handleListRecords)
		r.With(middleware.RequirePermission(auth.PermPayrollCompute, h.Perms)).Post("/records", h.handleCompute)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/records/{recordID}", h.handleGetRecord)
		r.With(middleware.RequirePermission(auth.PermPayrollDelete, h.Perms)).Delete("/records/{recordID}", h.handleDeleteRecord)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/records/{recordID}/payslip", h.handleDownloadPayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollCompute, h.Perms)).Post("/periods/{period}/run", h.handleRunPeriod)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/periods/{period}/register", h.handleExportRegister)
	})
}

func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var in payroll.Input
	if !shared.DecodeJSON(w, r, &in, reqID) {
		return
	}
	result, err := h.Service.Simulate(in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload computeRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	validator := shared.NewValidator()
	validator.Required("employeeId", payload.EmployeeID, "is required")
	validator.Required("period", payload.Period, "is required")
	if validator.Reject(w, reqID) {
		return
	}

	record, err := h.Service.Compute(r.Context(), user.UserID, payload.EmployeeID, payload.Period, payload.VariablePay)
	if err != nil {
		if payroll.IsClientError(err) {
			h.recordPayroll(0, 1)
		}
		h.fail(w, r, err)
		return
	}
	h.recordPayroll(1, 0)
	shared.Audit(r, h.Audit, audit.Entry{ActorID: user.UserID, Action: "payroll.compute", EntityType: "payroll_record", EntityID: record.ID, After: record.Result})
	api.Created(w, record, reqID)
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 500)
	filter := payroll.RecordFilter{
		Period:     strings.TrimSpace(r.URL.Query().Get("period")),
		EmployeeID: strings.TrimSpace(r.URL.Query().Get("employeeId")),
	}
	records, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if records == nil {
		records = []payroll.Record{}
	}
	shared.SetTotal(w, total)
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.Service.Get(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, record, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	record, err := h.Service.Delete(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.Entry{ActorID: user.UserID, Action: "payroll.delete", EntityType: "payroll_record", EntityID: record.ID, Before: record.Result})
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDownloadPayslip(w http.ResponseWriter, r *http.Request) {
	record, pdf, err := h.Payslips.Fetch(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.File(w, "application/pdf", payslip.Filename(record), pdf)
}

// handleRunPeriod computes every active employee of a period. Variable pay
// comes as JSON keyed by matricule or as an uploaded sheet; ?async=true
// queues the run instead of waiting for it.
func (h *Handler) handleRunPeriod(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	period := chi.URLParam(r, "period")
	if _, err := payroll.ParsePeriod(period); err != nil {
		h.fail(w, r, err)
		return
	}

	req, raw, ok := h.readRunRequest(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("async") == "true" {
		req.Async = true
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	requestHash := middleware.RequestHash(append([]byte(period+"|"+strconv.FormatBool(req.Async)+"|"), raw...))
	if idempotencyKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.UserID, endpointPeriodRun, idempotencyKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different request", reqID)
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "err", err)
		}
		if found {
			api.Success(w, stored, reqID)
			return
		}
	}

	var response any
	status := http.StatusOK
	if req.Async {
		if err := h.Service.StartPeriodRun(user.UserID, period, req.Variables); err != nil {
			h.fail(w, r, err)
			return
		}
		response = runAccepted{Period: period, Status: "queued"}
		status = http.StatusAccepted
	} else {
		summary, err := h.Service.RunPeriod(r.Context(), user.UserID, period, req.Variables)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.recordPayroll(summary.Processed, summary.Failed)
		response = summary
	}

	if idempotencyKey != "" && h.Idempotency != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			err = h.Idempotency.Save(r.Context(), user.UserID, endpointPeriodRun, idempotencyKey, requestHash, payload)
		}
		if err != nil {
			slog.Warn("idempotency save failed", "err", err)
		}
	}

	shared.Audit(r, h.Audit, audit.Entry{ActorID: user.UserID, Action: "payroll.period.run", EntityType: "payroll_period", EntityID: period, After: response})
	if status == http.StatusAccepted {
		api.Accepted(w, response, reqID)
		return
	}
	api.Success(w, response, reqID)
}

// readRunRequest returns the decoded run request and the raw bytes it was
// read from.
func (h *Handler) readRunRequest(w http.ResponseWriter, r *http.Request) (runRequest, []byte, bool) {
	reqID := middleware.GetRequestID(r.Context())
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, format, ok := shared.Upload(w, r, "file", h.MaxImportBytes, reqID)
		if !ok {
			return runRequest{}, nil, false
		}
		defer file.Close()
		raw, err := io.ReadAll(file)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_file", "failed to read uploaded file", reqID)
			return runRequest{}, nil, false
		}
		variables, issues, err := spreadsheet.ParseVariables(bytes.NewReader(raw), format)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_file", err.Error(), reqID)
			return runRequest{}, nil, false
		}
		if len(issues) > 0 {
			api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "variable pay sheet has invalid rows", map[string]any{"rows": issues}, reqID)
			return runRequest{}, nil, false
		}
		return runRequest{Variables: variables}, raw, true
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", reqID)
			return runRequest{}, nil, false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return runRequest{}, nil, false
	}
	var req runRequest
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
			return runRequest{}, nil, false
		}
	}
	if len(req.Variables) > 0 {
		normalized := make(map[string]payroll.VariablePay, len(req.Variables))
		for matricule, pay := range req.Variables {
			normalized[strings.ToUpper(strings.TrimSpace(matricule))] = pay
		}
		req.Variables = normalized
	}
	return req, raw, true
}

func (h *Handler) handleExportRegister(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	period := chi.URLParam(r, "period")
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = spreadsheet.FormatXLSX
	}
	validator := shared.NewValidator()
	validator.Enum("format", format, []string{spreadsheet.FormatCSV, spreadsheet.FormatXLSX}, "must be csv or xlsx")
	if validator.Reject(w, reqID) {
		return
	}

	records, err := h.Service.PeriodRecords(r.Context(), period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	month, _ := payroll.ParsePeriod(period)
	period = payroll.FormatPeriod(month)
	body, err := spreadsheet.Register(format, period, records)
	if err != nil {
		slog.Error("register export failed", "period", period, "err", err)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export register", reqID)
		return
	}
	contentType := spreadsheet.ContentTypeXLSX
	if format == spreadsheet.FormatCSV {
		contentType = spreadsheet.ContentTypeCSV
	}
	api.File(w, contentType, spreadsheet.RegisterFilename(format, period), body)
}

func (h *Handler) recordPayroll(computed, failed int) {
	if h.Metrics != nil {
		h.Metrics.RecordPayroll(computed, failed)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	var inputErr *payroll.InputError
	switch {
	case errors.As(err, &inputErr):
		issues := make([]shared.ValidationIssue, 0, len(inputErr.Issues))
		for _, issue := range inputErr.Issues {
			issues = append(issues, shared.ValidationIssue{Field: issue.Field, Reason: issue.Reason})
		}
		shared.FailValidation(w, reqID, issues)
	case errors.Is(err, payroll.ErrInvalidPeriod):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "period", Reason: err.Error()}})
	case errors.Is(err, payroll.ErrRecordNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "payroll record not found", reqID)
	case errors.Is(err, employee.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, payroll.ErrInactive):
		api.Fail(w, http.StatusConflict, "employee_inactive", err.Error(), reqID)
	case errors.Is(err, payroll.ErrQueueFull):
		api.Fail(w, http.StatusServiceUnavailable, "queue_full", err.Error(), reqID)
	case errors.Is(err, payroll.ErrConfiguration):
		slog.Error("payroll configuration error", "err", err)
		api.Fail(w, http.StatusInternalServerError, "configuration_error", err.Error(), reqID)
	default:
		slog.Error("payroll request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "payroll_failed", "payroll operation failed", reqID)
	}
}
