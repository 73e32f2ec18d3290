package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"paie/internal/domain/audit"
	"paie/internal/domain/auth"
	"paie/internal/transport/http/api"
	"paie/internal/transport/http/middleware"
	"paie/internal/transport/http/shared"
)

type Service interface {
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	CreateUser(ctx context.Context, email, password, role string) (auth.User, error)
	ListUsers(ctx context.Context) ([]auth.User, error)
	Deactivate(ctx context.Context, userID string) error
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionChecker
	Audit   shared.AuditRecorder
}

func NewHandler(service Service, perms middleware.PermissionChecker, recorder shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: recorder}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Get("/auth/me", h.HandleMe)
	r.Route("/users", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermUsersManage, h.Perms)).Get("/", h.handleListUsers)
		r.With(middleware.RequirePermission(auth.PermUsersManage, h.Perms)).Post("/", h.handleCreateUser)
		r.With(middleware.RequirePermission(auth.PermUsersManage, h.Perms)).Post("/{userID}/deactivate", h.handleDeactivate)
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	validator := shared.NewValidator()
	validator.Required("email", payload.Email, "is required")
	validator.Required("password", payload.Password, "is required")
	if validator.Reject(w, reqID) {
		return
	}

	result, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		slog.Info("login rejected", "ip", shared.ClientIP(r))
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	}
	if err != nil {
		slog.Error("login failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", reqID)
		return
	}

	shared.Audit(r, h.Audit, audit.Entry{ActorID: result.User.ID, Action: "auth.login", EntityType: "user", EntityID: result.User.ID})
	api.Success(w, result, reqID)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"id":          user.UserID,
		"email":       user.Email,
		"role":        user.Role,
		"permissions": auth.RolePermissions[user.Role],
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "user_list_failed", "failed to list users", middleware.GetRequestID(r.Context()))
		return
	}
	if users == nil {
		users = []auth.User{}
	}
	api.Success(w, users, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload createUserRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	validator := shared.NewValidator()
	validator.Required("email", payload.Email, "is required")
	validator.Required("role", payload.Role, "is required")
	validator.Enum("role", payload.Role, []string{auth.RoleAdmin, auth.RoleAccountant}, "must be admin or accountant")
	if len(payload.Password) < 8 {
		validator.Add("password", "must be at least 8 characters")
	}
	if validator.Reject(w, reqID) {
		return
	}

	created, err := h.Service.CreateUser(r.Context(), payload.Email, payload.Password, strings.ToLower(strings.TrimSpace(payload.Role)))
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", reqID)
		return
	case errors.Is(err, auth.ErrInvalidRole), errors.Is(err, auth.ErrWeakPassword):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "user_create_failed", "failed to create user", reqID)
		return
	}

	shared.Audit(r, h.Audit, audit.Entry{ActorID: user.UserID, Action: "user.create", EntityType: "user", EntityID: created.ID, After: created})
	api.Created(w, created, reqID)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	userID := chi.URLParam(r, "userID")
	if userID == user.UserID {
		api.Fail(w, http.StatusBadRequest, "self_deactivation", "you cannot deactivate your own account", reqID)
		return
	}

	err := h.Service.Deactivate(r.Context(), userID)
	if errors.Is(err, auth.ErrUserNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "user_update_failed", "failed to deactivate user", reqID)
		return
	}

	shared.Audit(r, h.Audit, audit.Entry{ActorID: user.UserID, Action: "user.deactivate", EntityType: "user", EntityID: userID})
	api.Success(w, map[string]string{"status": "deactivated"}, reqID)
}
