package audithandler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"paie/internal/domain/audit"
	"paie/internal/domain/auth"
	"paie/internal/domain/spreadsheet"
	"paie/internal/transport/http/api"
	"paie/internal/transport/http/middleware"
	"paie/internal/transport/http/shared"
)

const exportLimit = 10000

var exportHeader = []string{"Date", "Utilisateur", "Action", "Objet", "Identifiant", "Requête", "IP"}

type Service interface {
	Count(ctx context.Context, filter audit.Filter) (int, error)
	List(ctx context.Context, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionChecker
}

func NewHandler(service Service, perms middleware.PermissionChecker) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermAuditRead, h.Perms))
		r.Get("/events", h.handleListEvents)
		r.Get("/events/export", h.handleExportEvents)
	})
}

// parseFilter reads the query filters; to is a day and includes that whole
// day.
func parseFilter(w http.ResponseWriter, r *http.Request) (audit.Filter, bool) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     strings.TrimSpace(q.Get("action")),
		EntityType: strings.TrimSpace(q.Get("entityType")),
		EntityID:   strings.TrimSpace(q.Get("entityId")),
		ActorUser:  strings.TrimSpace(q.Get("actorUserId")),
	}
	v := shared.NewValidator()
	if raw := q.Get("from"); raw != "" {
		filter.From, _ = v.Date("from", raw)
	}
	if raw := q.Get("to"); raw != "" {
		if to, ok := v.Date("to", raw); ok {
			filter.To = to.AddDate(0, 0, 1)
		}
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		v.Add("to", "must not be before from")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return audit.Filter{}, false
	}
	return filter, true
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		slog.WarnContext(r.Context(), "audit count failed", "err", err)
	}
	events, err := h.Service.List(r.Context(), filter, r.URL.Query().Get("includeDetails") == "true", page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", reqID)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	shared.SetTotal(w, total)
	api.Success(w, events, reqID)
}

// handleExportEvents downloads up to exportLimit events as csv (default) or
// xlsx.
func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = spreadsheet.FormatCSV
	}
	v := shared.NewValidator()
	v.Enum("format", format, []string{spreadsheet.FormatCSV, spreadsheet.FormatXLSX}, "must be csv or xlsx")
	if v.Reject(w, reqID) {
		return
	}

	events, err := h.Service.List(r.Context(), filter, false, exportLimit, 0)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", reqID)
		return
	}
	rows := make([][]any, 0, len(events))
	for _, evt := range events {
		rows = append(rows, []any{evt.CreatedAt.UTC().Format(time.RFC3339), evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP})
	}
	body, err := spreadsheet.Export(format, "Journal", exportHeader, rows)
	if err != nil {
		slog.ErrorContext(r.Context(), "audit export render failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", reqID)
		return
	}
	contentType := spreadsheet.ContentTypeCSV
	if format == spreadsheet.FormatXLSX {
		contentType = spreadsheet.ContentTypeXLSX
	}
	api.File(w, contentType, "journal-audit."+format, body)
}
