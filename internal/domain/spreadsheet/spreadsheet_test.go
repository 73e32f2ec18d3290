package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"paie/internal/domain/employee"
	"paie/internal/domain/payroll"
)

func TestFormatFromName(t *testing.T) {
	if f, err := FormatFromName("Salariés.XLSX"); err != nil || f != FormatXLSX {
		t.Fatalf("expected xlsx, got %q %v", f, err)
	}
	if f, err := FormatFromName("export.csv"); err != nil || f != FormatCSV {
		t.Fatalf("expected csv, got %q %v", f, err)
	}
	if _, err := FormatFromName("notes.ods"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseEmployeesCSVWithFrenchHeaders(t *testing.T) {
	data := "\ufeffMatricule;Prénom;Nom;Salaire de base;Logement;Date d'embauche;Statut\n" +
		"m-001;Awa;Camara;2 500 000;300000;2021-03-01;\n" +
		";;;;;;\n" +
		"M-002;Ibrahima;Diallo;abc;0;01/02/2020;inactive\n"

	rows, issues, err := ParseEmployees(strings.NewReader(data), FormatCSV)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	emp := rows[0].Employee
	if emp.Matricule != "m-001" || emp.FirstName != "Awa" || emp.BaseSalary != 2_500_000 {
		t.Fatalf("unexpected employee %+v", emp)
	}
	if emp.ExemptAllowances.Housing != 300_000 {
		t.Fatalf("expected housing 300000, got %d", emp.ExemptAllowances.Housing)
	}
	if emp.HireDate == nil || emp.HireDate.Year() != 2021 {
		t.Fatalf("expected hire date in 2021, got %v", emp.HireDate)
	}
	if len(issues) != 1 || issues[0].Row != 4 || issues[0].Issues[0].Field != "baseSalary" {
		t.Fatalf("unexpected issues %+v", issues)
	}
}

func TestParseEmployeesRequiresMatriculeColumn(t *testing.T) {
	_, _, err := ParseEmployees(strings.NewReader("name,salary\nA,1\n"), FormatCSV)
	if !errors.Is(err, ErrEmptySheet) {
		t.Fatalf("expected ErrEmptySheet, got %v", err)
	}
}

func TestParseVariablesXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	values := [][]any{
		{"Matricule", "Primes", "HS jour", "HS nuit +"},
		{"m-001", 150000, "2,5", 1},
		{"M-001", 1, 0, 0},
		{"M-002", -5, 0, 0},
	}
	for r, row := range values {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	vars, issues, err := ParseVariables(bytes.NewReader(buf.Bytes()), FormatXLSX)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pay, ok := vars["M-001"]
	if !ok {
		t.Fatalf("expected M-001 in %+v", vars)
	}
	if pay.Bonus != 150_000 || pay.OvertimeHours.NormalFirst != 2.5 || pay.OvertimeHours.NightExtended != 1 {
		t.Fatalf("unexpected variable pay %+v", pay)
	}
	if len(issues) != 2 {
		t.Fatalf("expected duplicate and negative rows reported, got %+v", issues)
	}
	if issues[0].Row != 3 || issues[1].Row != 4 {
		t.Fatalf("unexpected issue rows %+v", issues)
	}
}

func sampleRecord(matricule string, gross, net int64, levy payroll.EmployerLevy) payroll.Record {
	return payroll.Record{
		Matricule:    matricule,
		EmployeeName: "Test " + matricule,
		Period:       "2026-01",
		Input:        payroll.Input{BaseSalary: gross},
		Result: payroll.Result{
			GrossSalary: gross,
			NetSalary:   net,
			Employer:    payroll.EmployerCharges{Levy: levy, TotalEmployerCost: gross * 2},
		},
	}
}

func TestRegisterCSVHasTotals(t *testing.T) {
	records := []payroll.Record{
		sampleRecord("M-001", 1_000_000, 900_000, payroll.ApprenticeshipLevy(30_000)),
		sampleRecord("M-002", 2_000_000, 1_700_000, payroll.ApprenticeshipLevy(60_000)),
	}
	out, err := Register(FormatCSV, "2026-01", records)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, 2 rows and totals, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Matricule;Nom;Période;Salaire de base") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	total := strings.Split(lines[3], ";")
	if total[0] != "TOTAL" {
		t.Fatalf("expected totals row, got %q", lines[3])
	}
	if total[9] != "3000000" {
		t.Fatalf("expected gross total 3000000, got %q", total[9])
	}
	if total[18] != "90000" || total[19] != "0" {
		t.Fatalf("expected levy totals 90000/0, got %q/%q", total[18], total[19])
	}
}

func TestRegisterXLSXReadsBack(t *testing.T) {
	records := []payroll.Record{sampleRecord("M-001", 1_000_000, 900_000, payroll.VocationalFundLevy(15_000))}
	out, err := Register(FormatXLSX, "2026-01", records)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Livre de paie 2026-01")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1][0] != "M-001" || rows[1][19] != "15000" {
		t.Fatalf("unexpected data row %v", rows[1])
	}
}

func TestRegisterEmptyPeriodHasHeaderOnly(t *testing.T) {
	out, err := Register(FormatCSV, "2026-02", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if n := strings.Count(string(out), "\n"); n != 1 {
		t.Fatalf("expected header only, got %d lines", n)
	}
}

type fakeWriter struct {
	existing map[string]bool
	fail     error
}

func (f *fakeWriter) Upsert(_ context.Context, emp employee.Employee) (employee.Employee, bool, error) {
	if f.fail != nil {
		return employee.Employee{}, false, f.fail
	}
	employee.Normalize(&emp)
	if err := employee.Validate(emp); err != nil {
		return employee.Employee{}, false, err
	}
	created := !f.existing[emp.Matricule]
	f.existing[emp.Matricule] = true
	return emp, created, nil
}

func TestImportEmployeesCountsAndReports(t *testing.T) {
	data := "matricule,first_name,last_name,base_salary\n" +
		"M-001,Awa,Camara,1000000\n" +
		"M-002,Ibrahima,Diallo,1200000\n" +
		"M-003,,Sow,900000\n" +
		"M-004,Fanta,Bah,x\n"
	writer := &fakeWriter{existing: map[string]bool{"M-002": true}}

	report, err := NewImporter(writer).ImportEmployees(context.Background(), strings.NewReader(data), FormatCSV)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Created != 1 || report.Updated != 1 || report.Skipped != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", report.Issues)
	}
}

func TestImportEmployeesAbortsOnStoreFailure(t *testing.T) {
	writer := &fakeWriter{existing: map[string]bool{}, fail: errors.New("db down")}
	_, err := NewImporter(writer).ImportEmployees(context.Background(), strings.NewReader("matricule,prenom,nom,salaire_base\nM-1,A,B,1\n"), FormatCSV)
	if err == nil || !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("expected row-tagged error, got %v", err)
	}
}
