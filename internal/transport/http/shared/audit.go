package shared

import (
	"context"
	"log/slog"
	"net/http"

	"paie/internal/domain/audit"
	"paie/internal/requestctx"
)

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Audit fills the request metadata of entry and records it. A failed write
// is logged and never fails the request.
func Audit(r *http.Request, recorder AuditRecorder, entry audit.Entry) {
	if recorder == nil {
		return
	}
	entry.RequestID = requestctx.GetRequestID(r.Context())
	entry.IP = ClientIP(r)
	if err := recorder.Record(r.Context(), entry); err != nil {
		slog.Warn("audit record failed", "action", entry.Action, "entityId", entry.EntityID, "err", err)
	}
}
