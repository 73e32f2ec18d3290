package payroll

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// UpperBound is the inclusive ceiling of a tax bracket. The zero value is
// open-ended: the bracket absorbs all remaining income.
type UpperBound struct {
	limit   int64
	bounded bool
}

func Through(limit int64) UpperBound {
	return UpperBound{limit: limit, bounded: true}
}

func Unbounded() UpperBound {
	return UpperBound{}
}

func (u UpperBound) Limit() (int64, bool) {
	return u.limit, u.bounded
}

func (u UpperBound) IsOpen() bool {
	return !u.bounded
}

func (u UpperBound) MarshalJSON() ([]byte, error) {
	if !u.bounded {
		return []byte("null"), nil
	}
	return json.Marshal(u.limit)
}

func (u *UpperBound) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*u = Unbounded()
		return nil
	}
	var limit int64
	if err := json.Unmarshal(data, &limit); err != nil {
		return err
	}
	*u = Through(limit)
	return nil
}

type TaxBracket struct {
	Lower int64           `json:"lowerBound"`
	Upper UpperBound      `json:"upperBound"`
	Rate  decimal.Decimal `json:"rate"`
}

type ContributionRates struct {
	EmployeeRate decimal.Decimal `json:"employeeRate"`
	EmployerRate decimal.Decimal `json:"employerRate"`
	Floor        int64           `json:"floorBase"`
	Cap          int64           `json:"capBase"`
}

// OvertimeTiers holds the day multipliers; night multipliers are derived by
// adding NightPremium.
type OvertimeTiers struct {
	DayFirst     decimal.Decimal `json:"dayFirst"`
	DayExtended  decimal.Decimal `json:"dayExtended"`
	NightPremium decimal.Decimal `json:"nightPremium"`
}

func (t OvertimeTiers) NightFirst() decimal.Decimal {
	return t.DayFirst.Add(t.NightPremium)
}

func (t OvertimeTiers) NightExtended() decimal.Decimal {
	return t.DayExtended.Add(t.NightPremium)
}

type EmployerRates struct {
	VFRate             decimal.Decimal `json:"vfRate"`
	VFAbatementRate    decimal.Decimal `json:"vfAbatementRate"`
	VFAbatementCeiling int64           `json:"vfAbatementCeiling"`
	ApprenticeshipRate decimal.Decimal `json:"apprenticeshipRate"`
	VocationalFundRate decimal.Decimal `json:"vocationalFundRate"`
	HeadcountThreshold int             `json:"headcountThreshold"`
}

type ZeroHeadcountPolicy string

const (
	ZeroHeadcountExempt ZeroHeadcountPolicy = "exempt"
	ZeroHeadcountReject ZeroHeadcountPolicy = "reject"
)

// Rates is the full regulatory parameter set consumed by the calculator.
type Rates struct {
	Brackets      []TaxBracket        `json:"brackets"`
	Contribution  ContributionRates   `json:"contribution"`
	ExemptCapRate decimal.Decimal     `json:"exemptCapRate"`
	MonthlyHours  int64               `json:"monthlyHours"`
	Overtime      OvertimeTiers       `json:"overtime"`
	Employer      EmployerRates       `json:"employer"`
	ZeroHeadcount ZeroHeadcountPolicy `json:"zeroHeadcount"`
}

func DefaultRates() Rates {
	return Rates{
		Brackets: []TaxBracket{
			{Lower: 0, Upper: Through(1_000_000), Rate: decimal.Zero},
			{Lower: 1_000_000, Upper: Through(3_000_000), Rate: decimal.RequireFromString("0.05")},
			{Lower: 3_000_000, Upper: Through(5_000_000), Rate: decimal.RequireFromString("0.08")},
			{Lower: 5_000_000, Upper: Through(10_000_000), Rate: decimal.RequireFromString("0.10")},
			{Lower: 10_000_000, Upper: Through(20_000_000), Rate: decimal.RequireFromString("0.15")},
			{Lower: 20_000_000, Upper: Unbounded(), Rate: decimal.RequireFromString("0.20")},
		},
		Contribution: ContributionRates{
			EmployeeRate: decimal.RequireFromString("0.05"),
			EmployerRate: decimal.RequireFromString("0.18"),
			Floor:        550_000,
			Cap:          2_500_000,
		},
		ExemptCapRate: decimal.RequireFromString("0.25"),
		MonthlyHours:  173,
		Overtime: OvertimeTiers{
			DayFirst:     decimal.RequireFromString("1.30"),
			DayExtended:  decimal.RequireFromString("1.60"),
			NightPremium: decimal.RequireFromString("0.20"),
		},
		Employer: EmployerRates{
			VFRate:             decimal.RequireFromString("0.06"),
			VFAbatementRate:    decimal.RequireFromString("0.06"),
			VFAbatementCeiling: 2_500_000,
			ApprenticeshipRate: decimal.RequireFromString("0.03"),
			VocationalFundRate: decimal.RequireFromString("0.015"),
			HeadcountThreshold: 30,
		},
		ZeroHeadcount: ZeroHeadcountExempt,
	}
}

var one = decimal.NewFromInt(1)

func (r Rates) Validate() error {
	if err := ValidateBrackets(r.Brackets); err != nil {
		return err
	}
	c := r.Contribution
	if err := checkRate("contribution.employeeRate", c.EmployeeRate); err != nil {
		return err
	}
	if err := checkRate("contribution.employerRate", c.EmployerRate); err != nil {
		return err
	}
	if c.Floor < 0 {
		return &ConfigError{Field: "contribution.floorBase", Reason: "must not be negative"}
	}
	if c.Floor > c.Cap {
		return &ConfigError{Field: "contribution.floorBase", Reason: "must not exceed capBase"}
	}
	if err := checkRate("exemptCapRate", r.ExemptCapRate); err != nil {
		return err
	}
	if r.MonthlyHours <= 0 {
		return &ConfigError{Field: "monthlyHours", Reason: "must be positive"}
	}
	if r.Overtime.DayFirst.LessThan(one) {
		return &ConfigError{Field: "overtime.dayFirst", Reason: "multiplier must be at least 1"}
	}
	if r.Overtime.DayExtended.LessThan(one) {
		return &ConfigError{Field: "overtime.dayExtended", Reason: "multiplier must be at least 1"}
	}
	if r.Overtime.NightPremium.IsNegative() {
		return &ConfigError{Field: "overtime.nightPremium", Reason: "must not be negative"}
	}
	e := r.Employer
	employerRates := []struct {
		field string
		rate  decimal.Decimal
	}{
		{"employer.vfRate", e.VFRate},
		{"employer.vfAbatementRate", e.VFAbatementRate},
		{"employer.apprenticeshipRate", e.ApprenticeshipRate},
		{"employer.vocationalFundRate", e.VocationalFundRate},
	}
	for _, item := range employerRates {
		if err := checkRate(item.field, item.rate); err != nil {
			return err
		}
	}
	if e.VFAbatementCeiling < 0 {
		return &ConfigError{Field: "employer.vfAbatementCeiling", Reason: "must not be negative"}
	}
	if e.HeadcountThreshold < 1 {
		return &ConfigError{Field: "employer.headcountThreshold", Reason: "must be at least 1"}
	}
	switch r.ZeroHeadcount {
	case ZeroHeadcountExempt, ZeroHeadcountReject:
	default:
		return &ConfigError{Field: "zeroHeadcount", Reason: fmt.Sprintf("unknown policy %q", r.ZeroHeadcount)}
	}
	return nil
}

// ValidateBrackets checks that the table starts at 0, is contiguous and ends
// with exactly one open-ended bracket.
func ValidateBrackets(brackets []TaxBracket) error {
	if len(brackets) == 0 {
		return &ConfigError{Field: "brackets", Reason: "at least one bracket is required"}
	}
	if brackets[0].Lower != 0 {
		return &ConfigError{Field: "brackets[0].lowerBound", Reason: "first bracket must start at 0"}
	}
	last := len(brackets) - 1
	for i, b := range brackets {
		field := fmt.Sprintf("brackets[%d]", i)
		if err := checkRate(field+".rate", b.Rate); err != nil {
			return err
		}
		limit, bounded := b.Upper.Limit()
		if !bounded && i != last {
			return &ConfigError{Field: field + ".upperBound", Reason: "only the last bracket may be open-ended"}
		}
		if bounded && limit <= b.Lower {
			return &ConfigError{Field: field + ".upperBound", Reason: "must exceed lowerBound"}
		}
		if i == 0 {
			continue
		}
		prev, _ := brackets[i-1].Upper.Limit()
		switch {
		case b.Lower > prev:
			return &ConfigError{Field: field + ".lowerBound", Reason: fmt.Sprintf("gap after %d", prev)}
		case b.Lower < prev:
			return &ConfigError{Field: field + ".lowerBound", Reason: fmt.Sprintf("overlaps previous bracket ending at %d", prev)}
		}
	}
	if !brackets[last].Upper.IsOpen() {
		return &ConfigError{Field: fmt.Sprintf("brackets[%d].upperBound", last), Reason: "last bracket must be open-ended"}
	}
	return nil
}

func checkRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(one) {
		return &ConfigError{Field: field, Reason: "rate must be between 0 and 1"}
	}
	return nil
}
