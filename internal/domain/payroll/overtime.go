package payroll

import "github.com/shopspring/decimal"

// OvertimeHours are the hours worked per tier. "First" covers hours 1-4 of
// the tier, "Extended" hours 5 and beyond.
type OvertimeHours struct {
	NormalFirst    float64 `json:"normalFirst"`
	NormalExtended float64 `json:"normalExtended"`
	NightFirst     float64 `json:"nightFirst"`
	NightExtended  float64 `json:"nightExtended"`
}

func (h OvertimeHours) Total() float64 {
	return h.NormalFirst + h.NormalExtended + h.NightFirst + h.NightExtended
}

type OvertimeLine struct {
	Hours      float64         `json:"hours"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Pay        int64           `json:"pay"`
}

type OvertimeBreakdown struct {
	HourlyRate     decimal.Decimal `json:"hourlyRate"`
	NormalFirst    OvertimeLine    `json:"normalFirst"`
	NormalExtended OvertimeLine    `json:"normalExtended"`
	NightFirst     OvertimeLine    `json:"nightFirst"`
	NightExtended  OvertimeLine    `json:"nightExtended"`
	TotalHours     float64         `json:"totalHours"`
	TotalPay       int64           `json:"totalPay"`
}

// OvertimePay is the unrounded overtime total, before any int64 conversion.
func OvertimePay(baseSalary int64, hours OvertimeHours, tiers OvertimeTiers, monthlyHours int64) decimal.Decimal {
	hourly := decimal.NewFromInt(baseSalary).Div(decimal.NewFromInt(monthlyHours))
	return decimal.NewFromFloat(hours.NormalFirst).Mul(tiers.DayFirst).
		Add(decimal.NewFromFloat(hours.NormalExtended).Mul(tiers.DayExtended)).
		Add(decimal.NewFromFloat(hours.NightFirst).Mul(tiers.NightFirst())).
		Add(decimal.NewFromFloat(hours.NightExtended).Mul(tiers.NightExtended())).
		Mul(hourly)
}

func (b OvertimeBreakdown) Lines() []OvertimeLine {
	return []OvertimeLine{b.NormalFirst, b.NormalExtended, b.NightFirst, b.NightExtended}
}

// ComputeOvertime prices each tier at hours * (baseSalary / monthlyHours) *
// multiplier. Tiers are rounded one by one and the total is the sum of the
// rounded lines, which is what the payslip shows.
func ComputeOvertime(baseSalary int64, hours OvertimeHours, tiers OvertimeTiers, monthlyHours int64) OvertimeBreakdown {
	hourly := decimal.NewFromInt(baseSalary).Div(decimal.NewFromInt(monthlyHours))
	line := func(h float64, multiplier decimal.Decimal) OvertimeLine {
		pay := decimal.NewFromFloat(h).Mul(hourly).Mul(multiplier)
		return OvertimeLine{Hours: h, Multiplier: multiplier, Pay: roundGNF(pay)}
	}

	out := OvertimeBreakdown{
		HourlyRate:     hourly.Round(2),
		NormalFirst:    line(hours.NormalFirst, tiers.DayFirst),
		NormalExtended: line(hours.NormalExtended, tiers.DayExtended),
		NightFirst:     line(hours.NightFirst, tiers.NightFirst()),
		NightExtended:  line(hours.NightExtended, tiers.NightExtended()),
		TotalHours:     hours.Total(),
	}
	for _, l := range out.Lines() {
		out.TotalPay += l.Pay
	}
	return out
}
