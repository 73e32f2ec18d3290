package employee

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	cryptoutil "paie/internal/platform/crypto"
	"paie/internal/platform/querier"
)

type Store struct {
	DB     querier.Querier
	Crypto *cryptoutil.Service
}

func NewStore(db querier.Querier, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

const employeeColumns = `
    id, matricule, first_name, last_name, email, position, department, hire_date, status,
    base_salary, allowances, housing_allowance, transport_allowance, cost_of_living_allowance,
    food_allowance, bank_account_enc, created_at, updated_at`

func (s *Store) Create(ctx context.Context, emp Employee) (Employee, error) {
	bankEnc, err := s.Crypto.EncryptString(emp.BankAccount)
	if err != nil {
		return Employee{}, err
	}
	row := s.DB.QueryRow(ctx, `
    INSERT INTO employees (
      matricule, first_name, last_name, email, position, department, hire_date, status,
      base_salary, allowances, housing_allowance, transport_allowance, cost_of_living_allowance,
      food_allowance, bank_account_enc
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    RETURNING `+employeeColumns,
		emp.Matricule, emp.FirstName, emp.LastName, emp.Email, emp.Position, emp.Department, emp.HireDate, emp.Status,
		emp.BaseSalary, emp.Allowances, emp.ExemptAllowances.Housing, emp.ExemptAllowances.Transport,
		emp.ExemptAllowances.CostOfLiving, emp.ExemptAllowances.Food, bankEnc,
	)
	return s.scanWrite(row)
}

func (s *Store) Update(ctx context.Context, emp Employee) (Employee, error) {
	bankEnc, err := s.Crypto.EncryptString(emp.BankAccount)
	if err != nil {
		return Employee{}, err
	}
	row := s.DB.QueryRow(ctx, `
    UPDATE employees
    SET matricule = $2, first_name = $3, last_name = $4, email = $5, position = $6, department = $7,
        hire_date = $8, status = $9, base_salary = $10, allowances = $11, housing_allowance = $12,
        transport_allowance = $13, cost_of_living_allowance = $14, food_allowance = $15,
        bank_account_enc = $16, updated_at = now()
    WHERE id = $1
    RETURNING `+employeeColumns,
		emp.ID, emp.Matricule, emp.FirstName, emp.LastName, emp.Email, emp.Position, emp.Department, emp.HireDate, emp.Status,
		emp.BaseSalary, emp.Allowances, emp.ExemptAllowances.Housing, emp.ExemptAllowances.Transport,
		emp.ExemptAllowances.CostOfLiving, emp.ExemptAllowances.Food, bankEnc,
	)
	return s.scanWrite(row)
}

// UpsertByMatricule inserts or replaces the employee carrying emp.Matricule.
// The boolean reports whether a new row was created.
func (s *Store) UpsertByMatricule(ctx context.Context, emp Employee) (Employee, bool, error) {
	bankEnc, err := s.Crypto.EncryptString(emp.BankAccount)
	if err != nil {
		return Employee{}, false, err
	}
	var inserted bool
	row := s.DB.QueryRow(ctx, `
    INSERT INTO employees (
      matricule, first_name, last_name, email, position, department, hire_date, status,
      base_salary, allowances, housing_allowance, transport_allowance, cost_of_living_allowance,
      food_allowance, bank_account_enc
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    ON CONFLICT (matricule)
    DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
                  email = EXCLUDED.email, position = EXCLUDED.position, department = EXCLUDED.department,
                  hire_date = EXCLUDED.hire_date, status = EXCLUDED.status,
                  base_salary = EXCLUDED.base_salary, allowances = EXCLUDED.allowances,
                  housing_allowance = EXCLUDED.housing_allowance,
                  transport_allowance = EXCLUDED.transport_allowance,
                  cost_of_living_allowance = EXCLUDED.cost_of_living_allowance,
                  food_allowance = EXCLUDED.food_allowance,
                  bank_account_enc = COALESCE(EXCLUDED.bank_account_enc, employees.bank_account_enc),
                  updated_at = now()
    RETURNING `+employeeColumns+`, (xmax = 0)`,
		emp.Matricule, emp.FirstName, emp.LastName, emp.Email, emp.Position, emp.Department, emp.HireDate, emp.Status,
		emp.BaseSalary, emp.Allowances, emp.ExemptAllowances.Housing, emp.ExemptAllowances.Transport,
		emp.ExemptAllowances.CostOfLiving, emp.ExemptAllowances.Food, bankEnc,
	)
	out, err := s.scan(row, &inserted)
	if err != nil {
		return Employee{}, false, err
	}
	return out, inserted, nil
}

func (s *Store) Get(ctx context.Context, id string) (Employee, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = $1", id)
	emp, err := s.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return emp, err
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := filterClause(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Employee, error) {
	where, args := filterClause(filter)
	query := "SELECT " + employeeColumns + " FROM employees" + where +
		fmt.Sprintf(" ORDER BY matricule LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	return s.query(ctx, query, args...)
}

func (s *Store) ListActive(ctx context.Context) ([]Employee, error) {
	return s.query(ctx, "SELECT "+employeeColumns+" FROM employees WHERE status = $1 ORDER BY matricule", StatusActive)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM employees WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) scanWrite(row pgx.Row) (Employee, error) {
	emp, err := s.scan(row)
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		return Employee{}, ErrDuplicate
	case errors.Is(err, pgx.ErrNoRows):
		return Employee{}, ErrNotFound
	}
	return emp, err
}

func (s *Store) scan(row pgx.Row, extra ...any) (Employee, error) {
	var emp Employee
	var bankEnc []byte
	dest := []any{
		&emp.ID, &emp.Matricule, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Position, &emp.Department,
		&emp.HireDate, &emp.Status, &emp.BaseSalary, &emp.Allowances,
		&emp.ExemptAllowances.Housing, &emp.ExemptAllowances.Transport,
		&emp.ExemptAllowances.CostOfLiving, &emp.ExemptAllowances.Food,
		&bankEnc, &emp.CreatedAt, &emp.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Employee{}, err
	}
	bank, err := s.Crypto.DecryptString(bankEnc)
	if err != nil {
		return Employee{}, fmt.Errorf("decrypt bank account: %w", err)
	}
	emp.BankAccount = bank
	return emp, nil
}

func filterClause(filter Filter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(lower(matricule) LIKE $%d OR lower(first_name) LIKE $%d OR lower(last_name) LIKE $%d)", n, n, n))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
