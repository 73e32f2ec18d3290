package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"paie/internal/platform/querier"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	password  string
}

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, email, passwordHash, role string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetActive(ctx context.Context, userID string, active bool) error
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (User, error) {
	var out User
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, role, active, created_at, password_hash
    FROM users
    WHERE lower(email) = lower($1) AND active
  `, email).Scan(&out.ID, &out.Email, &out.Role, &out.Active, &out.CreatedAt, &out.password)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return out, err
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, role string) (User, error) {
	out := User{Email: email, Role: role, Active: true}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role)
    VALUES ($1,$2,$3)
    RETURNING id, created_at
  `, email, passwordHash, role).Scan(&out.ID, &out.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return User{}, ErrEmailTaken
	}
	return out, err
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, email, role, active, created_at
    FROM users
    ORDER BY email
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) SetActive(ctx context.Context, userID string, active bool) error {
	tag, err := s.DB.Exec(ctx, "UPDATE users SET active = $1 WHERE id = $2", active, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
