package spreadsheet

import (
	"paie/internal/domain/payroll"
)

// Column describes one column of the period register.
type Column struct {
	Header string
	Value  func(payroll.Record) any
}

var RegisterColumns = []Column{
	{Header: "Matricule", Value: func(r payroll.Record) any { return r.Matricule }},
	{Header: "Nom", Value: func(r payroll.Record) any { return r.EmployeeName }},
	{Header: "Période", Value: func(r payroll.Record) any { return r.Period }},
	{Header: "Salaire de base", Value: func(r payroll.Record) any { return r.Input.BaseSalary }},
	{Header: "Indemnités", Value: func(r payroll.Record) any { return r.Input.Allowances }},
	{Header: "Primes", Value: func(r payroll.Record) any { return r.Input.Bonus }},
	{Header: "13e mois", Value: func(r payroll.Record) any { return r.Input.ThirteenthMonth }},
	{Header: "Heures supplémentaires", Value: func(r payroll.Record) any { return r.Result.Overtime.TotalPay }},
	{Header: "Indemnités exonérées", Value: func(r payroll.Record) any { return r.Result.ExemptAllowances }},
	{Header: "Salaire brut", Value: func(r payroll.Record) any { return r.Result.GrossSalary }},
	{Header: "Base CNSS", Value: func(r payroll.Record) any { return r.Result.ContributionBase }},
	{Header: "CNSS salarié", Value: func(r payroll.Record) any { return r.Result.EmployeeContribution }},
	{Header: "Base imposable", Value: func(r payroll.Record) any { return r.Result.TaxableIncome }},
	{Header: "RTS", Value: func(r payroll.Record) any { return r.Result.IncomeTax }},
	{Header: "Total retenues", Value: func(r payroll.Record) any { return r.Result.TotalDeductions }},
	{Header: "Net à payer", Value: func(r payroll.Record) any { return r.Result.NetSalary }},
	{Header: "CNSS employeur", Value: func(r payroll.Record) any { return r.Result.Employer.CNSSEmployer }},
	{Header: "Versement forfaitaire", Value: func(r payroll.Record) any { return r.Result.Employer.VersementForfaitaire }},
	{Header: "Taxe d'apprentissage", Value: func(r payroll.Record) any { return r.Result.Employer.Levy.Apprenticeship() }},
	{Header: "ONFPP", Value: func(r payroll.Record) any { return r.Result.Employer.Levy.VocationalFund() }},
	{Header: "Coût employeur", Value: func(r payroll.Record) any { return r.Result.Employer.TotalEmployerCost }},
}

// totalsFrom is the index of the first summed column.
const totalsFrom = 3

// Register renders the records of one period with a trailing totals row.
func Register(format, period string, records []payroll.Record) ([]byte, error) {
	header := make([]string, len(RegisterColumns))
	for i, col := range RegisterColumns {
		header[i] = col.Header
	}

	rows := make([][]any, 0, len(records)+1)
	totals := make([]int64, len(RegisterColumns))
	for _, rec := range records {
		row := make([]any, len(RegisterColumns))
		for i, col := range RegisterColumns {
			row[i] = col.Value(rec)
			if v, ok := row[i].(int64); ok && i >= totalsFrom {
				totals[i] += v
			}
		}
		rows = append(rows, row)
	}

	if len(records) > 0 {
		last := make([]any, len(RegisterColumns))
		last[0] = "TOTAL"
		last[1] = ""
		last[2] = period
		for i := totalsFrom; i < len(last); i++ {
			last[i] = totals[i]
		}
		rows = append(rows, last)
	}

	return writeRows(format, "Livre de paie "+period, header, rows)
}

// RegisterFilename is the download name of a period register.
func RegisterFilename(format, period string) string {
	return "livre-de-paie-" + period + "." + format
}
