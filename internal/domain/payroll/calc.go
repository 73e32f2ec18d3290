package payroll

import (
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

// Per-field ceilings keep every intermediate sum well inside int64. 744 is
// the number of hours in a 31-day month.
const (
	MaxAmount    int64   = 1_000_000_000_000_000
	MaxTierHours float64 = 744
)

// Input is one month of pay for one employee. Amounts are whole GNF.
type Input struct {
	BaseSalary       int64            `json:"baseSalary"`
	Allowances       int64            `json:"allowances"`
	Bonus            int64            `json:"bonus"`
	ThirteenthMonth  int64            `json:"thirteenthMonth"`
	ExemptAllowances ExemptAllowances `json:"exemptAllowances"`
	OvertimeHours    OvertimeHours    `json:"overtimeHours"`
	EmployeeCount    int              `json:"employeeCount"`
}

type Result struct {
	GrossSalary          int64             `json:"grossSalary"`
	ContributionBase     int64             `json:"contributionBase"`
	EmployeeContribution int64             `json:"employeeContribution"`
	ExemptAllowances     int64             `json:"exemptAllowances"`
	ExemptDeductible     int64             `json:"exemptDeductible"`
	TaxableIncome        int64             `json:"taxableIncome"`
	TaxableClamped       bool              `json:"taxableClamped"`
	IncomeTax            int64             `json:"incomeTax"`
	TotalDeductions      int64             `json:"totalDeductions"`
	NetSalary            int64             `json:"netSalary"`
	Overtime             OvertimeBreakdown `json:"overtime"`
	Employer             EmployerCharges   `json:"employer"`
	// Rates is the parameter set the figures were computed with. Records
	// stored before it was kept leave it nil.
	Rates *Rates `json:"rates,omitempty"`
}

// Calculator runs the payroll rules against one validated rate set. It holds
// no mutable state and is safe for concurrent use.
type Calculator struct {
	rates Rates
}

func NewCalculator(rates Rates) (*Calculator, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{rates: rates}, nil
}

func (c *Calculator) Rates() Rates {
	return c.rates
}

// Compute either returns a complete result or an *InputError; never both.
func (c *Calculator) Compute(in Input) (Result, error) {
	if err := c.validate(in); err != nil {
		return Result{}, err
	}

	if err := c.checkGross(in); err != nil {
		return Result{}, err
	}

	exemptSum := in.ExemptAllowances.Sum()
	overtime := ComputeOvertime(in.BaseSalary, in.OvertimeHours, c.rates.Overtime, c.rates.MonthlyHours)
	gross := in.BaseSalary + in.Allowances + in.Bonus + in.ThirteenthMonth + overtime.TotalPay + exemptSum

	contribution := ComputeContribution(gross, c.rates.Contribution)
	exemptDeductible := CapExemptAllowances(exemptSum, gross, c.rates.ExemptCapRate)

	taxable := gross - contribution.Employee - exemptDeductible
	clamped := false
	if taxable < 0 {
		taxable = 0
		clamped = true
	}
	incomeTax := ComputeTax(taxable, c.rates.Brackets)
	deductions := incomeTax + contribution.Employee

	return Result{
		GrossSalary:          gross,
		ContributionBase:     contribution.Base,
		EmployeeContribution: contribution.Employee,
		ExemptAllowances:     exemptSum,
		ExemptDeductible:     exemptDeductible,
		TaxableIncome:        taxable,
		TaxableClamped:       clamped,
		IncomeTax:            incomeTax,
		TotalDeductions:      deductions,
		NetSalary:            gross - deductions,
		Overtime:             overtime,
		Employer:             ComputeEmployerCharges(gross, in.EmployeeCount, c.rates),
		Rates:                c.snapshot(),
	}, nil
}

func (c *Calculator) snapshot() *Rates {
	rates := c.rates
	rates.Brackets = slices.Clone(c.rates.Brackets)
	return &rates
}

func (c *Calculator) validate(in Input) error {
	var issues []FieldIssue
	add := func(field, reason string) {
		issues = append(issues, FieldIssue{Field: field, Reason: reason})
	}
	switch {
	case in.BaseSalary <= 0:
		add("baseSalary", "must be greater than 0")
	case in.BaseSalary > MaxAmount:
		add("baseSalary", fmt.Sprintf("must not exceed %d", MaxAmount))
	}
	amounts := []struct {
		field string
		value int64
	}{
		{"allowances", in.Allowances},
		{"bonus", in.Bonus},
		{"thirteenthMonth", in.ThirteenthMonth},
		{"exemptAllowances.housing", in.ExemptAllowances.Housing},
		{"exemptAllowances.transport", in.ExemptAllowances.Transport},
		{"exemptAllowances.costOfLiving", in.ExemptAllowances.CostOfLiving},
		{"exemptAllowances.food", in.ExemptAllowances.Food},
	}
	for _, a := range amounts {
		switch {
		case a.value < 0:
			add(a.field, "must not be negative")
		case a.value > MaxAmount:
			add(a.field, fmt.Sprintf("must not exceed %d", MaxAmount))
		}
	}
	hours := []struct {
		field string
		value float64
	}{
		{"overtimeHours.normalFirst", in.OvertimeHours.NormalFirst},
		{"overtimeHours.normalExtended", in.OvertimeHours.NormalExtended},
		{"overtimeHours.nightFirst", in.OvertimeHours.NightFirst},
		{"overtimeHours.nightExtended", in.OvertimeHours.NightExtended},
	}
	for _, h := range hours {
		switch {
		case h.value < 0 || math.IsNaN(h.value) || math.IsInf(h.value, 0):
			add(h.field, "must be a non-negative number of hours")
		case h.value > MaxTierHours:
			add(h.field, fmt.Sprintf("must not exceed %g hours", MaxTierHours))
		}
	}
	switch {
	case in.EmployeeCount < 0:
		add("employeeCount", "must not be negative")
	case in.EmployeeCount == 0 && c.rates.ZeroHeadcount == ZeroHeadcountReject:
		add("employeeCount", "company headcount must be set before computing employer charges")
	}
	if len(issues) > 0 {
		return &InputError{Issues: issues}
	}
	return nil
}

// checkGross sums the gross in decimal so a configured rate set with extreme
// multipliers cannot push the int64 arithmetic past its range.
func (c *Calculator) checkGross(in Input) error {
	gross := decimal.Zero
	for _, amount := range []int64{in.BaseSalary, in.Allowances, in.Bonus, in.ThirteenthMonth, in.ExemptAllowances.Sum()} {
		gross = gross.Add(decimal.NewFromInt(amount))
	}
	overtime := OvertimePay(in.BaseSalary, in.OvertimeHours, c.rates.Overtime, c.rates.MonthlyHours)
	gross = gross.Add(overtime)

	limit := decimal.NewFromInt(math.MaxInt64)
	var issues []FieldIssue
	if overtime.GreaterThan(limit) {
		issues = append(issues, FieldIssue{Field: "overtimeHours", Reason: "overtime pay exceeds the representable amount"})
	}
	if gross.GreaterThan(limit) {
		issues = append(issues, FieldIssue{Field: "grossSalary", Reason: "gross pay exceeds the representable amount"})
	}
	if len(issues) > 0 {
		return &InputError{Issues: issues}
	}
	return nil
}
