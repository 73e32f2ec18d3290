package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"paie/internal/platform/querier"
)

type StoreAPI interface {
	Get(ctx context.Context) (Company, error)
	Save(ctx context.Context, c Company) (Company, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Get(ctx context.Context) (Company, error) {
	var c Company
	err := s.DB.QueryRow(ctx, `
    SELECT company_name, address, cnss_number, employee_count, headcount_mode, updated_at
    FROM company_settings
    WHERE id = 1
  `).Scan(&c.Name, &c.Address, &c.CNSSNumber, &c.EmployeeCount, &c.HeadcountMode, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrNotInitialized
	}
	return c, err
}

func (s *Store) Save(ctx context.Context, c Company) (Company, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO company_settings (id, company_name, address, cnss_number, employee_count, headcount_mode)
    VALUES (1,$1,$2,$3,$4,$5)
    ON CONFLICT (id)
    DO UPDATE SET company_name = EXCLUDED.company_name, address = EXCLUDED.address,
                  cnss_number = EXCLUDED.cnss_number, employee_count = EXCLUDED.employee_count,
                  headcount_mode = EXCLUDED.headcount_mode, updated_at = now()
    RETURNING updated_at
  `, c.Name, c.Address, c.CNSSNumber, c.EmployeeCount, c.HeadcountMode).Scan(&c.UpdatedAt)
	return c, err
}
