package payroll

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type LevyKind string

const (
	LevyNone           LevyKind = "none"
	LevyApprenticeship LevyKind = "apprenticeship"
	LevyVocationalFund LevyKind = "vocational_fund"
)

// EmployerLevy is the single headcount-selected levy. At most one of the two
// regimes can ever carry an amount.
type EmployerLevy struct {
	Kind   LevyKind
	Amount int64
}

func NoLevy() EmployerLevy {
	return EmployerLevy{Kind: LevyNone}
}

func ApprenticeshipLevy(amount int64) EmployerLevy {
	return EmployerLevy{Kind: LevyApprenticeship, Amount: amount}
}

func VocationalFundLevy(amount int64) EmployerLevy {
	return EmployerLevy{Kind: LevyVocationalFund, Amount: amount}
}

func (l EmployerLevy) Apprenticeship() int64 {
	if l.Kind == LevyApprenticeship {
		return l.Amount
	}
	return 0
}

func (l EmployerLevy) VocationalFund() int64 {
	if l.Kind == LevyVocationalFund {
		return l.Amount
	}
	return 0
}

// SelectLevy applies the headcount rule: below the threshold the
// apprenticeship levy, from the threshold the vocational fund levy, none
// without a headcount.
func SelectLevy(grossSalary int64, employeeCount int, rates EmployerRates) EmployerLevy {
	switch {
	case employeeCount <= 0:
		return NoLevy()
	case employeeCount < rates.HeadcountThreshold:
		return ApprenticeshipLevy(applyRate(grossSalary, rates.ApprenticeshipRate))
	default:
		return VocationalFundLevy(applyRate(grossSalary, rates.VocationalFundRate))
	}
}

type EmployerCharges struct {
	CNSSEmployer         int64
	VFBase               int64
	VersementForfaitaire int64
	Levy                 EmployerLevy
	TotalCharges         int64
	TotalEmployerCost    int64
}

// VFBase returns the abated base of the versement forfaitaire. Above the
// ceiling the abatement is frozen at ceiling * abatementRate.
func VFBase(grossSalary int64, rates EmployerRates) decimal.Decimal {
	gross := decimal.NewFromInt(grossSalary)
	var abated decimal.Decimal
	if grossSalary < rates.VFAbatementCeiling {
		abated = gross.Mul(rates.VFAbatementRate)
	} else {
		abated = decimal.NewFromInt(rates.VFAbatementCeiling).Mul(rates.VFAbatementRate)
	}
	return gross.Sub(abated)
}

func ComputeEmployerCharges(grossSalary int64, employeeCount int, rates Rates) EmployerCharges {
	contribution := ComputeContribution(grossSalary, rates.Contribution)
	vfBase := VFBase(grossSalary, rates.Employer)
	charges := EmployerCharges{
		CNSSEmployer:         contribution.Employer,
		VFBase:               roundGNF(vfBase),
		VersementForfaitaire: roundGNF(vfBase.Mul(rates.Employer.VFRate)),
		Levy:                 SelectLevy(grossSalary, employeeCount, rates.Employer),
	}
	charges.TotalCharges = charges.CNSSEmployer + charges.VersementForfaitaire +
		charges.Levy.Apprenticeship() + charges.Levy.VocationalFund()
	charges.TotalEmployerCost = grossSalary + charges.TotalCharges
	return charges
}

type employerChargesJSON struct {
	CNSSEmployer         int64    `json:"cnssEmployer"`
	VFBase               int64    `json:"vfBase"`
	VersementForfaitaire int64    `json:"versementForfaitaire"`
	LevyKind             LevyKind `json:"levyKind"`
	ApprenticeshipLevy   int64    `json:"apprenticeshipLevy"`
	VocationalFundLevy   int64    `json:"vocationalFundLevy"`
	TotalCharges         int64    `json:"totalCharges"`
	TotalEmployerCost    int64    `json:"totalEmployerCost"`
}

// MarshalJSON always emits both levy amounts so payslip consumers find every
// line, zero or not.
func (c EmployerCharges) MarshalJSON() ([]byte, error) {
	return json.Marshal(employerChargesJSON{
		CNSSEmployer:         c.CNSSEmployer,
		VFBase:               c.VFBase,
		VersementForfaitaire: c.VersementForfaitaire,
		LevyKind:             c.Levy.Kind,
		ApprenticeshipLevy:   c.Levy.Apprenticeship(),
		VocationalFundLevy:   c.Levy.VocationalFund(),
		TotalCharges:         c.TotalCharges,
		TotalEmployerCost:    c.TotalEmployerCost,
	})
}

func (c *EmployerCharges) UnmarshalJSON(data []byte) error {
	var raw employerChargesJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var levy EmployerLevy
	switch raw.LevyKind {
	case LevyApprenticeship:
		levy = ApprenticeshipLevy(raw.ApprenticeshipLevy)
	case LevyVocationalFund:
		levy = VocationalFundLevy(raw.VocationalFundLevy)
	case LevyNone, "":
		levy = NoLevy()
	default:
		return fmt.Errorf("unknown levy kind %q", raw.LevyKind)
	}
	*c = EmployerCharges{
		CNSSEmployer:         raw.CNSSEmployer,
		VFBase:               raw.VFBase,
		VersementForfaitaire: raw.VersementForfaitaire,
		Levy:                 levy,
		TotalCharges:         raw.TotalCharges,
		TotalEmployerCost:    raw.TotalEmployerCost,
	}
	return nil
}
