package reports

import (
	"time"

	"paie/internal/platform/jobs"
)

// Totals sums the flattened result columns of a set of payroll records.
type Totals struct {
	Headcount            int   `json:"headcount"`
	GrossSalary          int64 `json:"grossSalary"`
	NetSalary            int64 `json:"netSalary"`
	IncomeTax            int64 `json:"incomeTax"`
	CNSSEmployee         int64 `json:"cnssEmployee"`
	CNSSEmployer         int64 `json:"cnssEmployer"`
	VersementForfaitaire int64 `json:"versementForfaitaire"`
	Apprenticeship       int64 `json:"apprenticeshipTax"`
	VocationalFund       int64 `json:"vocationalFundLevy"`
	EmployerCost         int64 `json:"totalEmployerCost"`
	NegativeNet          int   `json:"negativeNetCount"`
}

type PeriodTotals struct {
	Period string `json:"period"`
	Totals
}

type Dashboard struct {
	Period         string    `json:"period"`
	Totals         Totals    `json:"totals"`
	ActiveEmployee int       `json:"activeEmployees"`
	Pending        int       `json:"pendingEmployees"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

type JobRunPage struct {
	Items []jobs.Run `json:"items"`
	Total int        `json:"total"`
}
