package reports

import (
	"context"

	"paie/internal/domain/payroll"
	"paie/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const totalsColumns = `
  COUNT(*),
  COALESCE(SUM(gross_salary), 0),
  COALESCE(SUM(net_salary), 0),
  COALESCE(SUM(income_tax), 0),
  COALESCE(SUM(cnss_employee), 0),
  COALESCE(SUM(cnss_employer), 0),
  COALESCE(SUM(versement_forfaitaire), 0),
  COALESCE(SUM(levy_amount) FILTER (WHERE levy_kind = $2), 0),
  COALESCE(SUM(levy_amount) FILTER (WHERE levy_kind = $3), 0),
  COALESCE(SUM(total_employer_cost), 0),
  COUNT(*) FILTER (WHERE net_salary < 0)`

func (s *Store) PeriodTotals(ctx context.Context, period string) (Totals, error) {
	var t Totals
	err := s.DB.QueryRow(ctx, `
    SELECT`+totalsColumns+`
    FROM payroll_records
    WHERE period = $1
  `, period, string(payroll.LevyApprenticeship), string(payroll.LevyVocationalFund)).Scan(
		&t.Headcount, &t.GrossSalary, &t.NetSalary, &t.IncomeTax,
		&t.CNSSEmployee, &t.CNSSEmployer, &t.VersementForfaitaire,
		&t.Apprenticeship, &t.VocationalFund, &t.EmployerCost, &t.NegativeNet,
	)
	return t, err
}

// RecentPeriods returns per-period totals, newest first.
func (s *Store) RecentPeriods(ctx context.Context, limit int) ([]PeriodTotals, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT period,`+totalsColumns+`
    FROM payroll_records
    WHERE $1::int > 0
    GROUP BY period
    ORDER BY period DESC
    LIMIT $1
  `, limit, string(payroll.LevyApprenticeship), string(payroll.LevyVocationalFund))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PeriodTotals
	for rows.Next() {
		var p PeriodTotals
		t := &p.Totals
		if err := rows.Scan(&p.Period,
			&t.Headcount, &t.GrossSalary, &t.NetSalary, &t.IncomeTax,
			&t.CNSSEmployee, &t.CNSSEmployer, &t.VersementForfaitaire,
			&t.Apprenticeship, &t.VocationalFund, &t.EmployerCost, &t.NegativeNet,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// EmployeeCoverage counts active employees and those still lacking a record
// for the period.
func (s *Store) EmployeeCoverage(ctx context.Context, period string) (int, int, error) {
	var active, pending int
	err := s.DB.QueryRow(ctx, `
    SELECT
      COUNT(*),
      COUNT(*) FILTER (WHERE NOT EXISTS (
        SELECT 1 FROM payroll_records r WHERE r.employee_id = e.id AND r.period = $1
      ))
    FROM employees e
    WHERE e.status = 'active'
  `, period).Scan(&active, &pending)
	return active, pending, err
}
