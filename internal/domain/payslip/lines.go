package payslip

import (
	"fmt"
	"time"

	"paie/internal/domain/payroll"
	"paie/internal/platform/money"
)

type Section string

const (
	SectionEarnings   Section = "earnings"
	SectionDeductions Section = "deductions"
	SectionEmployer   Section = "employer"
)

// Line is one printed row. Base and Rate are preformatted and may be empty.
type Line struct {
	Section Section
	Label   string
	Base    string
	Rate    string
	Amount  int64
	Total   bool
}

type Data struct {
	CompanyName    string
	CompanyAddress string
	CNSSNumber     string
	Matricule      string
	EmployeeName   string
	Position       string
	Department     string
	BankAccount    string
	Period         string
	Record         payroll.Record
	Rates          payroll.Rates
	GeneratedAt    time.Time
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// PeriodLabel renders "2025-03" as "mars 2025".
func PeriodLabel(period string) string {
	month, err := payroll.ParsePeriod(period)
	if err != nil {
		return period
	}
	return fmt.Sprintf("%s %d", frenchMonths[month.Month()-1], month.Year())
}

// AppliedRates returns the rates a record was computed with, or current for
// records that predate the snapshot.
func AppliedRates(record payroll.Record, current payroll.Rates) payroll.Rates {
	if record.Result.Rates != nil {
		return *record.Result.Rates
	}
	return current
}

// Lines lays out every component of the result, zero amounts included.
func Lines(in payroll.Input, res payroll.Result, rates payroll.Rates) []Line {
	ot := res.Overtime
	overtime := []struct {
		label string
		line  payroll.OvertimeLine
	}{
		{"Heures sup. jour (1re tranche)", ot.NormalFirst},
		{"Heures sup. jour (au-delà)", ot.NormalExtended},
		{"Heures sup. nuit (1re tranche)", ot.NightFirst},
		{"Heures sup. nuit (au-delà)", ot.NightExtended},
	}

	lines := []Line{
		{Section: SectionEarnings, Label: "Salaire de base", Amount: in.BaseSalary},
		{Section: SectionEarnings, Label: "Primes et indemnités", Amount: in.Allowances},
		{Section: SectionEarnings, Label: "Gratification", Amount: in.Bonus},
		{Section: SectionEarnings, Label: "Treizième mois", Amount: in.ThirteenthMonth},
	}
	for _, o := range overtime {
		lines = append(lines, Line{
			Section: SectionEarnings,
			Label:   o.label,
			Base:    money.Hours(o.line.Hours) + " h x " + money.Number(ot.HourlyRate.Round(0).IntPart()),
			Rate:    o.line.Multiplier.String(),
			Amount:  o.line.Pay,
		})
	}
	exempt := in.ExemptAllowances
	lines = append(lines,
		Line{Section: SectionEarnings, Label: "Indemnité de logement", Amount: exempt.Housing},
		Line{Section: SectionEarnings, Label: "Indemnité de transport", Amount: exempt.Transport},
		Line{Section: SectionEarnings, Label: "Indemnité de cherté de vie", Amount: exempt.CostOfLiving},
		Line{Section: SectionEarnings, Label: "Indemnité de nourriture", Amount: exempt.Food},
		Line{Section: SectionEarnings, Label: "SALAIRE BRUT", Amount: res.GrossSalary, Total: true},

		Line{Section: SectionDeductions, Label: "CNSS part salariale", Base: money.Number(res.ContributionBase), Rate: money.Rate(rates.Contribution.EmployeeRate), Amount: res.EmployeeContribution},
		Line{Section: SectionDeductions, Label: "Abattement indemnités exonérées", Base: money.Number(res.ExemptAllowances), Rate: money.Rate(rates.ExemptCapRate) + " max", Amount: res.ExemptDeductible},
		Line{Section: SectionDeductions, Label: "Retenue sur traitements et salaires (RTS)", Base: money.Number(res.TaxableIncome), Amount: res.IncomeTax},
		Line{Section: SectionDeductions, Label: "TOTAL RETENUES", Amount: res.TotalDeductions, Total: true},
		Line{Section: SectionDeductions, Label: "NET À PAYER", Amount: res.NetSalary, Total: true},
	)

	emp := res.Employer
	lines = append(lines,
		Line{Section: SectionEmployer, Label: "CNSS part patronale", Base: money.Number(res.ContributionBase), Rate: money.Rate(rates.Contribution.EmployerRate), Amount: emp.CNSSEmployer},
		Line{Section: SectionEmployer, Label: "Versement forfaitaire", Base: money.Number(emp.VFBase), Rate: money.Rate(rates.Employer.VFRate), Amount: emp.VersementForfaitaire},
		Line{Section: SectionEmployer, Label: "Taxe d'apprentissage", Base: money.Number(res.GrossSalary), Rate: money.Rate(rates.Employer.ApprenticeshipRate), Amount: emp.Levy.Apprenticeship()},
		Line{Section: SectionEmployer, Label: "Contribution formation professionnelle", Base: money.Number(res.GrossSalary), Rate: money.Rate(rates.Employer.VocationalFundRate), Amount: emp.Levy.VocationalFund()},
		Line{Section: SectionEmployer, Label: "TOTAL CHARGES PATRONALES", Amount: emp.TotalCharges, Total: true},
		Line{Section: SectionEmployer, Label: "COÛT TOTAL EMPLOYEUR", Amount: emp.TotalEmployerCost, Total: true},
	)
	return lines
}
