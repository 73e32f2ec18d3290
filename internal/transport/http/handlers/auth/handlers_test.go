package authhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"paie/internal/domain/audit"
	"paie/internal/domain/auth"
	"paie/internal/transport/http/middleware"
	"paie/internal/transport/http/shared"
)

type fakeService struct {
	users       []auth.User
	deactivated []string
}

func (f *fakeService) Login(_ context.Context, email, password string) (auth.LoginResult, error) {
	if email != "admin@paie.gn" || password != "correct-horse" {
		return auth.LoginResult{}, auth.ErrInvalidCredentials
	}
	return auth.LoginResult{Token: "tok", ExpiresAt: time.Now().Add(time.Hour), User: auth.User{ID: "u1", Email: email, Role: auth.RoleAdmin}}, nil
}

func (f *fakeService) CreateUser(_ context.Context, email, _ string, role string) (auth.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return auth.User{}, auth.ErrEmailTaken
		}
	}
	u := auth.User{ID: fmt.Sprintf("u%d", len(f.users)+2), Email: email, Role: role, Active: true}
	f.users = append(f.users, u)
	return u, nil
}

func (f *fakeService) ListUsers(context.Context) ([]auth.User, error) {
	return f.users, nil
}

func (f *fakeService) Deactivate(_ context.Context, id string) error {
	for _, u := range f.users {
		if u.ID == id {
			f.deactivated = append(f.deactivated, id)
			return nil
		}
	}
	return auth.ErrUserNotFound
}

type captureAudit struct {
	actions []string
}

func (c *captureAudit) Record(_ context.Context, e audit.Entry) error {
	c.actions = append(c.actions, e.Action)
	return nil
}

func newRouter(svc Service, recorder *captureAudit, user *auth.UserContext) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if user != nil {
		u := *user
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), u)))
			})
		})
	}
	var audits shared.AuditRecorder
	if recorder != nil {
		audits = recorder
	}
	NewHandler(svc, auth.RoleChecker{}, audits).RegisterRoutes(r)
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Error.Code
}

func TestLogin(t *testing.T) {
	recorder := &captureAudit{}
	router := newRouter(&fakeService{}, recorder, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"admin@paie.gn","password":"correct-horse"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data auth.LoginResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Token != "tok" || body.Data.User.Role != auth.RoleAdmin {
		t.Fatalf("unexpected login result %+v", body.Data)
	}
	if len(recorder.actions) != 1 || recorder.actions[0] != "auth.login" {
		t.Fatalf("expected login audit, got %v", recorder.actions)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"admin@paie.gn","password":"nope"}`)))
	if rec.Code != http.StatusUnauthorized || decodeError(t, rec) != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":""}`)))
	if rec.Code != http.StatusBadRequest || decodeError(t, rec) != "validation_error" {
		t.Fatalf("expected validation_error, got %d", rec.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeService{}, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	user := &auth.UserContext{UserID: "u9", Email: "c@paie.gn", Role: auth.RoleAccountant}
	newRouter(&fakeService{}, nil, user).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), auth.PermPayrollCompute) {
		t.Fatalf("expected permissions in body, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestUserManagementRequiresAdmin(t *testing.T) {
	accountant := &auth.UserContext{UserID: "u9", Role: auth.RoleAccountant}
	rec := httptest.NewRecorder()
	newRouter(&fakeService{}, nil, accountant).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCreateAndDeactivateUser(t *testing.T) {
	svc := &fakeService{}
	recorder := &captureAudit{}
	admin := &auth.UserContext{UserID: "u1", Role: auth.RoleAdmin}
	router := newRouter(svc, recorder, admin)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/", strings.NewReader(`{"email":"compta@paie.gn","password":"longenough","role":"accountant"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/", strings.NewReader(`{"email":"compta@paie.gn","password":"longenough","role":"accountant"}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/", strings.NewReader(`{"email":"x@paie.gn","password":"short","role":"owner"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/u1/deactivate", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected self deactivation to be refused, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/"+svc.users[0].ID+"/deactivate", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/missing/deactivate", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	if strings.Join(recorder.actions, ",") != "user.create,user.deactivate" {
		t.Fatalf("unexpected audit trail %v", recorder.actions)
	}
}
