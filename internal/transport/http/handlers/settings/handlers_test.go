package settingshandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"paie/internal/domain/audit"
	"paie/internal/domain/auth"
	"paie/internal/domain/payroll"
	"paie/internal/domain/settings"
	"paie/internal/transport/http/middleware"
)

type fakeService struct {
	company *settings.Company
}

func (f *fakeService) Get(context.Context) (settings.Company, error) {
	if f.company == nil {
		return settings.Company{}, settings.ErrNotInitialized
	}
	return *f.company, nil
}

func (f *fakeService) Update(_ context.Context, c settings.Company) (settings.Company, error) {
	if c.HeadcountMode == "" {
		c.HeadcountMode = settings.HeadcountDeclared
	}
	f.company = &c
	return c, nil
}

func (f *fakeService) Headcount(context.Context) (int, error) {
	if f.company == nil {
		return 0, settings.ErrNotInitialized
	}
	return f.company.EmployeeCount, nil
}

type captureAudit struct {
	entries []audit.Entry
}

func (c *captureAudit) Record(_ context.Context, e audit.Entry) error {
	c.entries = append(c.entries, e)
	return nil
}

func newRouter(svc *fakeService, recorder *captureAudit, role string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHandler(svc, payroll.DefaultRates(), auth.RoleChecker{}, recorder).RegisterRoutes(r)
	return r
}

func TestCompanyLifecycle(t *testing.T) {
	svc := &fakeService{}
	recorder := &captureAudit{}
	router := newRouter(svc, recorder, auth.RoleAdmin)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings/company", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before initialization, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/settings/company", strings.NewReader(`{"name":"SOGUIPAMI","employeeCount":42}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if len(recorder.entries) != 1 || recorder.entries[0].Action != "settings.company.update" {
		t.Fatalf("unexpected audit %+v", recorder.entries)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings/company", nil))
	var body struct {
		Data struct {
			Company            settings.Company `json:"company"`
			EffectiveHeadcount int              `json:"effectiveHeadcount"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Company.Name != "SOGUIPAMI" || body.Data.EffectiveHeadcount != 42 {
		t.Fatalf("unexpected company %+v", body.Data)
	}
}

func TestUpdateCompanyValidation(t *testing.T) {
	router := newRouter(&fakeService{}, &captureAudit{}, auth.RoleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/settings/company", strings.NewReader(`{"name":"","employeeCount":-1,"headcountMode":"guess"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	for _, field := range []string{"name", "employeeCount", "headcountMode"} {
		if !strings.Contains(rec.Body.String(), field) {
			t.Fatalf("expected %s issue in %s", field, rec.Body.String())
		}
	}
}

func TestAccountantReadsButCannotWrite(t *testing.T) {
	router := newRouter(&fakeService{}, &captureAudit{}, auth.RoleAccountant)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings/rates", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"monthlyHours":173`) {
		t.Fatalf("expected rates, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/settings/company", strings.NewReader(`{"name":"X"}`)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
