package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"paie/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const recordColumns = `
    r.id, r.employee_id, e.matricule, e.first_name || ' ' || e.last_name,
    r.period, r.input_json, r.result_json, r.warnings_json, r.payslip_key,
    COALESCE(r.created_by::text, ''), r.created_at, r.updated_at`

func (s *Store) UpsertRecord(ctx context.Context, record Record) (Record, error) {
	inputJSON, err := json.Marshal(record.Input)
	if err != nil {
		return Record{}, err
	}
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return Record{}, err
	}
	if record.Warnings == nil {
		record.Warnings = []string{}
	}
	warningsJSON, err := json.Marshal(record.Warnings)
	if err != nil {
		return Record{}, err
	}

	res := record.Result
	err = s.DB.QueryRow(ctx, `
    INSERT INTO payroll_records (
      employee_id, period, input_json, result_json,
      gross_salary, income_tax, cnss_employee, cnss_employer, versement_forfaitaire,
      levy_kind, levy_amount, net_salary, total_employer_cost, warnings_json, created_by
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    ON CONFLICT (employee_id, period)
    DO UPDATE SET input_json = EXCLUDED.input_json,
                  result_json = EXCLUDED.result_json,
                  gross_salary = EXCLUDED.gross_salary,
                  income_tax = EXCLUDED.income_tax,
                  cnss_employee = EXCLUDED.cnss_employee,
                  cnss_employer = EXCLUDED.cnss_employer,
                  versement_forfaitaire = EXCLUDED.versement_forfaitaire,
                  levy_kind = EXCLUDED.levy_kind,
                  levy_amount = EXCLUDED.levy_amount,
                  net_salary = EXCLUDED.net_salary,
                  total_employer_cost = EXCLUDED.total_employer_cost,
                  warnings_json = EXCLUDED.warnings_json,
                  created_by = EXCLUDED.created_by,
                  payslip_key = '',
                  updated_at = now()
    RETURNING id, created_at, updated_at
  `, record.EmployeeID, record.Period, inputJSON, resultJSON,
		res.GrossSalary, res.IncomeTax, res.EmployeeContribution, res.Employer.CNSSEmployer, res.Employer.VersementForfaitaire,
		string(res.Employer.Levy.Kind), res.Employer.Levy.Amount, res.NetSalary, res.Employer.TotalEmployerCost,
		warningsJSON, nullIfEmpty(record.CreatedBy),
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	record.PayslipKey = ""
	return record, nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (Record, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM payroll_records r
    JOIN employees e ON r.employee_id = e.id
    WHERE r.id = $1
  `, id)
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return record, err
}

func (s *Store) CountRecords(ctx context.Context, filter RecordFilter) (int, error) {
	where, args := filterClause(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM payroll_records r"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListRecords(ctx context.Context, filter RecordFilter, limit, offset int) ([]Record, error) {
	where, args := filterClause(filter)
	query := `
    SELECT ` + recordColumns + `
    FROM payroll_records r
    JOIN employees e ON r.employee_id = e.id` + where +
		fmt.Sprintf(" ORDER BY r.period DESC, e.matricule LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	return s.queryRecords(ctx, query, args...)
}

func (s *Store) PeriodRecords(ctx context.Context, period string) ([]Record, error) {
	return s.queryRecords(ctx, `
    SELECT `+recordColumns+`
    FROM payroll_records r
    JOIN employees e ON r.employee_id = e.id
    WHERE r.period = $1
    ORDER BY e.matricule
  `, period)
}

func (s *Store) DeleteRecord(ctx context.Context, id string) (Record, error) {
	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if _, err := s.DB.Exec(ctx, "DELETE FROM payroll_records WHERE id = $1", id); err != nil {
		return Record{}, err
	}
	return record, nil
}

// PreviousNet returns the net salary of the latest period before period.
func (s *Store) PreviousNet(ctx context.Context, employeeID, period string) (int64, bool, error) {
	var net int64
	err := s.DB.QueryRow(ctx, `
    SELECT net_salary
    FROM payroll_records
    WHERE employee_id = $1 AND period < $2
    ORDER BY period DESC
    LIMIT 1
  `, employeeID, period).Scan(&net)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return net, true, nil
}

func (s *Store) SetPayslipKey(ctx context.Context, id, key string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE payroll_records SET payslip_key = $1 WHERE id = $2", key, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var record Record
	var inputJSON, resultJSON, warningsJSON []byte
	if err := row.Scan(
		&record.ID, &record.EmployeeID, &record.Matricule, &record.EmployeeName,
		&record.Period, &inputJSON, &resultJSON, &warningsJSON, &record.PayslipKey,
		&record.CreatedBy, &record.CreatedAt, &record.UpdatedAt,
	); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(inputJSON, &record.Input); err != nil {
		return Record{}, fmt.Errorf("decode record input: %w", err)
	}
	if err := json.Unmarshal(resultJSON, &record.Result); err != nil {
		return Record{}, fmt.Errorf("decode record result: %w", err)
	}
	if err := json.Unmarshal(warningsJSON, &record.Warnings); err != nil {
		record.Warnings = []string{}
	}
	return record, nil
}

func filterClause(filter RecordFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Period != "" {
		args = append(args, filter.Period)
		clauses = append(clauses, fmt.Sprintf("r.period = $%d", len(args)))
	}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		clauses = append(clauses, fmt.Sprintf("r.employee_id = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
