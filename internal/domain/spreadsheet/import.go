package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"paie/internal/domain/employee"
	"paie/internal/domain/payroll"
)

var employeeAliases = map[string][]string{
	"matricule":    {"matricule", "employee_number", "id"},
	"firstName":    {"prenom", "first_name", "firstname"},
	"lastName":     {"nom", "last_name", "lastname"},
	"email":        {"email", "e_mail", "courriel"},
	"position":     {"poste", "fonction", "position"},
	"department":   {"service", "departement", "department"},
	"hireDate":     {"date_embauche", "date_d'embauche", "hire_date"},
	"status":       {"statut", "status"},
	"baseSalary":   {"salaire_base", "salaire_de_base", "base_salary"},
	"allowances":   {"indemnites", "allowances"},
	"housing":      {"logement", "indemnite_logement", "housing"},
	"transport":    {"transport", "indemnite_transport"},
	"costOfLiving": {"cherte_vie", "cherte_de_vie", "cost_of_living"},
	"food":         {"nourriture", "panier", "food"},
	"bankAccount":  {"compte_bancaire", "rib", "bank_account"},
}

var variableAliases = map[string][]string{
	"matricule":       {"matricule", "employee_number", "id"},
	"bonus":           {"primes", "prime", "bonus"},
	"thirteenthMonth": {"13e_mois", "treizieme_mois", "thirteenth_month"},
	"extraAllowances": {"indemnites", "indemnites_variables", "extra_allowances"},
	"normalFirst":     {"hs_jour_8", "hs_jour", "overtime_day_first"},
	"normalExtended":  {"hs_jour_plus", "overtime_day_extended"},
	"nightFirst":      {"hs_nuit_8", "hs_nuit", "overtime_night_first"},
	"nightExtended":   {"hs_nuit_plus", "overtime_night_extended"},
}

// RowIssue reports a rejected spreadsheet row. Row is 1-based and counts
// the header.
type RowIssue struct {
	Row       int              `json:"row"`
	Matricule string           `json:"matricule,omitempty"`
	Issues    []employee.Issue `json:"issues"`
}

type EmployeeRow struct {
	Row      int
	Employee employee.Employee
}

// ParseEmployees reads an employee sheet. Rows with unreadable cells are
// returned as issues; validation of the parsed values is left to the
// employee service.
func ParseEmployees(r io.Reader, format string) ([]EmployeeRow, []RowIssue, error) {
	rows, err := readRows(r, format)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptySheet
	}
	idx := headerIndex(rows[0], employeeAliases)
	if _, ok := idx["matricule"]; !ok {
		return nil, nil, fmt.Errorf("%w: missing matricule column", ErrEmptySheet)
	}

	var parsed []EmployeeRow
	var issues []RowIssue
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		line := i + 2
		var problems []employee.Issue
		amount := func(field string) int64 {
			v, err := parseAmount(cell(row, idx, field))
			if err != nil {
				problems = append(problems, employee.Issue{Field: field, Reason: "must be a whole amount"})
			}
			return v
		}
		emp := employee.Employee{
			Matricule:  cell(row, idx, "matricule"),
			FirstName:  cell(row, idx, "firstName"),
			LastName:   cell(row, idx, "lastName"),
			Email:      cell(row, idx, "email"),
			Position:   cell(row, idx, "position"),
			Department: cell(row, idx, "department"),
			Status:     strings.ToLower(cell(row, idx, "status")),
			BaseSalary: amount("baseSalary"),
			Allowances: amount("allowances"),
			ExemptAllowances: payroll.ExemptAllowances{
				Housing:      amount("housing"),
				Transport:    amount("transport"),
				CostOfLiving: amount("costOfLiving"),
				Food:         amount("food"),
			},
			BankAccount: cell(row, idx, "bankAccount"),
		}
		if raw := cell(row, idx, "hireDate"); raw != "" {
			if d, ok := parseDate(raw); ok {
				emp.HireDate = &d
			} else {
				problems = append(problems, employee.Issue{Field: "hireDate", Reason: "must be YYYY-MM-DD or DD/MM/YYYY"})
			}
		}
		if len(problems) > 0 {
			issues = append(issues, RowIssue{Row: line, Matricule: emp.Matricule, Issues: problems})
			continue
		}
		parsed = append(parsed, EmployeeRow{Row: line, Employee: emp})
	}
	return parsed, issues, nil
}

// ParseVariables reads a sheet of month-specific pay keyed by matricule.
func ParseVariables(r io.Reader, format string) (map[string]payroll.VariablePay, []RowIssue, error) {
	rows, err := readRows(r, format)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptySheet
	}
	idx := headerIndex(rows[0], variableAliases)
	if _, ok := idx["matricule"]; !ok {
		return nil, nil, fmt.Errorf("%w: missing matricule column", ErrEmptySheet)
	}

	out := map[string]payroll.VariablePay{}
	var issues []RowIssue
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		line := i + 2
		matricule := strings.ToUpper(cell(row, idx, "matricule"))
		var problems []employee.Issue
		amount := func(field string) int64 {
			v, err := parseAmount(cell(row, idx, field))
			if err != nil || v < 0 {
				problems = append(problems, employee.Issue{Field: field, Reason: "must be a non-negative whole amount"})
			}
			return v
		}
		hours := func(field string) float64 {
			v, err := parseHours(cell(row, idx, field))
			if err != nil || v < 0 {
				problems = append(problems, employee.Issue{Field: field, Reason: "must be non-negative hours"})
			}
			return v
		}
		pay := payroll.VariablePay{
			Bonus:           amount("bonus"),
			ThirteenthMonth: amount("thirteenthMonth"),
			ExtraAllowances: amount("extraAllowances"),
			OvertimeHours: payroll.OvertimeHours{
				NormalFirst:    hours("normalFirst"),
				NormalExtended: hours("normalExtended"),
				NightFirst:     hours("nightFirst"),
				NightExtended:  hours("nightExtended"),
			},
		}
		if matricule == "" {
			problems = append(problems, employee.Issue{Field: "matricule", Reason: "is required"})
		} else if _, dup := out[matricule]; dup {
			problems = append(problems, employee.Issue{Field: "matricule", Reason: "appears more than once"})
		}
		if len(problems) > 0 {
			issues = append(issues, RowIssue{Row: line, Matricule: matricule, Issues: problems})
			continue
		}
		out[matricule] = pay
	}
	return out, issues, nil
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "02/01/2006", "01-02-06"} {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// EmployeeWriter is the part of the employee service an import needs.
type EmployeeWriter interface {
	Upsert(ctx context.Context, emp employee.Employee) (employee.Employee, bool, error)
}

type ImportReport struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Skipped int        `json:"skipped"`
	Issues  []RowIssue `json:"issues,omitempty"`
}

type Importer struct {
	employees EmployeeWriter
}

func NewImporter(employees EmployeeWriter) *Importer {
	return &Importer{employees: employees}
}

// ImportEmployees upserts every readable row by matricule. Invalid rows are
// skipped and reported; any other store failure aborts the import.
func (i *Importer) ImportEmployees(ctx context.Context, r io.Reader, format string) (ImportReport, error) {
	rows, issues, err := ParseEmployees(r, format)
	if err != nil {
		return ImportReport{}, err
	}
	report := ImportReport{Issues: issues, Skipped: len(issues)}
	for _, row := range rows {
		_, created, err := i.employees.Upsert(ctx, row.Employee)
		if err != nil {
			var verr *employee.ValidationError
			switch {
			case errors.As(err, &verr):
				report.Issues = append(report.Issues, RowIssue{Row: row.Row, Matricule: row.Employee.Matricule, Issues: verr.Issues})
			case errors.Is(err, employee.ErrDuplicate):
				report.Issues = append(report.Issues, RowIssue{Row: row.Row, Matricule: row.Employee.Matricule, Issues: []employee.Issue{{Field: "matricule", Reason: "conflicts with an existing employee"}}})
			default:
				return report, fmt.Errorf("row %d: %w", row.Row, err)
			}
			report.Skipped++
			continue
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}
	return report, nil
}
