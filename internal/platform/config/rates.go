package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"paie/internal/domain/payroll"
)

var ErrRatesFileMissing = errors.New("rates file not found")

type ratesFile struct {
	Brackets []struct {
		From int64   `yaml:"from"`
		To   *int64  `yaml:"to"`
		Rate float64 `yaml:"rate"`
	} `yaml:"brackets"`
	Contribution struct {
		EmployeeRate float64 `yaml:"employee_rate"`
		EmployerRate float64 `yaml:"employer_rate"`
		Floor        int64   `yaml:"floor"`
		Cap          int64   `yaml:"cap"`
	} `yaml:"contribution"`
	ExemptCapRate float64 `yaml:"exempt_cap_rate"`
	MonthlyHours  int64   `yaml:"monthly_hours"`
	Overtime      struct {
		DayFirst     float64 `yaml:"day_first"`
		DayExtended  float64 `yaml:"day_extended"`
		NightPremium float64 `yaml:"night_premium"`
	} `yaml:"overtime"`
	Employer struct {
		VFRate             float64 `yaml:"vf_rate"`
		VFAbatementRate    float64 `yaml:"vf_abatement_rate"`
		VFAbatementCeiling int64   `yaml:"vf_abatement_ceiling"`
		ApprenticeshipRate float64 `yaml:"apprenticeship_rate"`
		VocationalFundRate float64 `yaml:"vocational_fund_rate"`
		HeadcountThreshold int     `yaml:"headcount_threshold"`
	} `yaml:"employer"`
	ZeroHeadcount string `yaml:"zero_headcount"`
}

// LoadRates reads the regulatory rate table. Only an empty path yields the
// built-in defaults; a named file must exist and parse.
func LoadRates(path string) (payroll.Rates, error) {
	if path == "" {
		slog.Info("no rates file configured, using built-in rates")
		return payroll.DefaultRates(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return payroll.Rates{}, fmt.Errorf("rates file %s: %w", path, ErrRatesFileMissing)
	}
	if err != nil {
		return payroll.Rates{}, fmt.Errorf("read rates file: %w", err)
	}
	return ParseRates(data)
}

func ParseRates(data []byte) (payroll.Rates, error) {
	var file ratesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return payroll.Rates{}, fmt.Errorf("parse rates file: %w", err)
	}

	rates := payroll.Rates{
		Contribution: payroll.ContributionRates{
			EmployeeRate: decimal.NewFromFloat(file.Contribution.EmployeeRate),
			EmployerRate: decimal.NewFromFloat(file.Contribution.EmployerRate),
			Floor:        file.Contribution.Floor,
			Cap:          file.Contribution.Cap,
		},
		ExemptCapRate: decimal.NewFromFloat(file.ExemptCapRate),
		MonthlyHours:  file.MonthlyHours,
		Overtime: payroll.OvertimeTiers{
			DayFirst:     decimal.NewFromFloat(file.Overtime.DayFirst),
			DayExtended:  decimal.NewFromFloat(file.Overtime.DayExtended),
			NightPremium: decimal.NewFromFloat(file.Overtime.NightPremium),
		},
		Employer: payroll.EmployerRates{
			VFRate:             decimal.NewFromFloat(file.Employer.VFRate),
			VFAbatementRate:    decimal.NewFromFloat(file.Employer.VFAbatementRate),
			VFAbatementCeiling: file.Employer.VFAbatementCeiling,
			ApprenticeshipRate: decimal.NewFromFloat(file.Employer.ApprenticeshipRate),
			VocationalFundRate: decimal.NewFromFloat(file.Employer.VocationalFundRate),
			HeadcountThreshold: file.Employer.HeadcountThreshold,
		},
		ZeroHeadcount: payroll.ZeroHeadcountPolicy(file.ZeroHeadcount),
	}
	if rates.ZeroHeadcount == "" {
		rates.ZeroHeadcount = payroll.ZeroHeadcountExempt
	}
	for _, b := range file.Brackets {
		upper := payroll.Unbounded()
		if b.To != nil {
			upper = payroll.Through(*b.To)
		}
		rates.Brackets = append(rates.Brackets, payroll.TaxBracket{
			Lower: b.From,
			Upper: upper,
			Rate:  decimal.NewFromFloat(b.Rate),
		})
	}
	if err := rates.Validate(); err != nil {
		return payroll.Rates{}, err
	}
	return rates, nil
}
