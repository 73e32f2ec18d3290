package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"paie/internal/domain/audit"
	"paie/internal/requestctx"
)

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	if ip := ClientIP(req); ip != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", ip)
	}
	req.Header.Set("X-Forwarded-For", "197.149.1.2, 10.0.0.1")
	if ip := ClientIP(req); ip != "197.149.1.2" {
		t.Fatalf("expected forwarded client, got %q", ip)
	}
}

func TestParsePaginationClamps(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-3", nil)
	p := ParsePagination(req, 20, 100)
	if p.Limit != 100 || p.Offset != 0 {
		t.Fatalf("unexpected pagination %+v", p)
	}
}

func TestParsePaginationPages(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&pageSize=25", nil)
	p := ParsePagination(req, 20, 100)
	if p.Limit != 25 || p.Offset != 50 {
		t.Fatalf("unexpected pagination %+v", p)
	}
}

func TestValidatorDateLayouts(t *testing.T) {
	v := NewValidator()
	d, ok := v.Date("hireDate", "15/03/2024")
	if !ok || d.Month() != 3 || d.Day() != 15 {
		t.Fatalf("expected day-first date, got %v %v", d, ok)
	}
	if _, ok := v.Date("hireDate", "2024-13-01"); ok {
		t.Fatal("expected invalid month to fail")
	}
	if issues := v.Issues(); len(issues) != 1 || issues[0].Field != "hireDate" {
		t.Fatalf("unexpected issues %+v", issues)
	}
}

func TestValidatorRejectsWithSortedFields(t *testing.T) {
	v := NewValidator()
	v.Required("period", "", "is required")
	v.Enum("format", "pdf", []string{"csv", "xlsx"}, "must be csv or xlsx")
	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") {
		t.Fatal("expected rejection")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	fields := body.Error.Details.Fields
	if body.Error.Code != "validation_error" || len(fields) != 2 || fields[0].Field != "format" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Period string `json:"period"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"period":"2026-01","company":"x"}`))
	rec := httptest.NewRecorder()
	if DecodeJSON(rec, req, &dst, "") {
		t.Fatal("expected unknown field to be rejected")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDecodeJSONReportsOversizedBody(t *testing.T) {
	var dst map[string]any
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"period":"2026-01"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 4)
	if DecodeJSON(rec, req, &dst, "") {
		t.Fatal("expected oversized body to be rejected")
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

type captureAudit struct {
	entries []audit.Entry
	err     error
}

func (c *captureAudit) Record(_ context.Context, entry audit.Entry) error {
	c.entries = append(c.entries, entry)
	return c.err
}

func TestAuditFillsRequestMetadata(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.1.1.1:80"
	req = req.WithContext(requestctx.WithRequestID(req.Context(), "req-9"))
	rec := &captureAudit{err: errors.New("db down")}

	Audit(req, rec, audit.Entry{ActorID: "u1", Action: "employee.create", EntityType: "employee", EntityID: "e1"})

	if len(rec.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(rec.entries))
	}
	got := rec.entries[0]
	if got.RequestID != "req-9" || got.IP != "10.1.1.1" {
		t.Fatalf("unexpected metadata %+v", got)
	}
	Audit(req, nil, audit.Entry{})
}
