package payroll

import "github.com/shopspring/decimal"

type ExemptAllowances struct {
	Housing      int64 `json:"housing"`
	Transport    int64 `json:"transport"`
	CostOfLiving int64 `json:"costOfLiving"`
	Food         int64 `json:"food"`
}

func (a ExemptAllowances) Sum() int64 {
	return a.Housing + a.Transport + a.CostOfLiving + a.Food
}

// CapExemptAllowances returns how much of the exempt allowances may leave the
// tax base: min(sum, capRate * grossSalary). The allowances stay in gross and
// net pay regardless.
func CapExemptAllowances(sum, grossSalary int64, capRate decimal.Decimal) int64 {
	limit := decimal.NewFromInt(grossSalary).Mul(capRate)
	if decimal.NewFromInt(sum).LessThanOrEqual(limit) {
		return sum
	}
	return roundGNF(limit)
}
