package payroll

// ContributionBase picks the CNSS base. Pay at or below the floor is charged on
// the floor itself, so very low earners pay more than their share of pay.
func ContributionBase(grossSalary, floor, cap int64) int64 {
	switch {
	case grossSalary > cap:
		return cap
	case grossSalary > floor:
		return grossSalary
	default:
		return floor
	}
}

type Contribution struct {
	Base     int64 `json:"base"`
	Employee int64 `json:"employee"`
	Employer int64 `json:"employer"`
}

func ComputeContribution(grossSalary int64, rates ContributionRates) Contribution {
	base := ContributionBase(grossSalary, rates.Floor, rates.Cap)
	return Contribution{
		Base:     base,
		Employee: applyRate(base, rates.EmployeeRate),
		Employer: applyRate(base, rates.EmployerRate),
	}
}
