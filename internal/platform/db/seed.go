package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"paie/internal/domain/auth"
	"paie/internal/domain/settings"
	"paie/internal/platform/config"
	"paie/internal/platform/querier"
)

// Seed creates the first administrator and the default company profile. It
// is safe to run on every start.
func Seed(ctx context.Context, db querier.Querier, cfg config.Config) error {
	if err := ensureAdminUser(ctx, auth.NewStore(db), cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}
	company := settings.NewService(settings.NewStore(db), nil)
	return company.EnsureDefaults(ctx, cfg.CompanyName)
}

func ensureAdminUser(ctx context.Context, store *auth.Store, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = store.CreateUser(ctx, email, hash, auth.RoleAdmin)
	if errors.Is(err, auth.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("seeded admin user", "email", email)
	return nil
}
