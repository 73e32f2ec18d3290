package payroll

import "time"

// PayProfile is the fixed, employee-level part of a month's pay.
type PayProfile struct {
	EmployeeID     string
	Matricule      string
	FullName       string
	Active         bool
	HasBankAccount bool
	BaseSalary     int64
	Allowances     int64
	Exempt         ExemptAllowances
}

// VariablePay carries the month-specific inputs entered for one period.
type VariablePay struct {
	Bonus           int64         `json:"bonus"`
	ThirteenthMonth int64         `json:"thirteenthMonth"`
	ExtraAllowances int64         `json:"extraAllowances"`
	OvertimeHours   OvertimeHours `json:"overtimeHours"`
}

func InputFromProfile(profile PayProfile, variable VariablePay, employeeCount int) Input {
	return Input{
		BaseSalary:       profile.BaseSalary,
		Allowances:       profile.Allowances + variable.ExtraAllowances,
		Bonus:            variable.Bonus,
		ThirteenthMonth:  variable.ThirteenthMonth,
		ExemptAllowances: profile.Exempt,
		OvertimeHours:    variable.OvertimeHours,
		EmployeeCount:    employeeCount,
	}
}

type Record struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employeeId"`
	Matricule    string    `json:"matricule"`
	EmployeeName string    `json:"employeeName"`
	Period       string    `json:"period"`
	Input        Input     `json:"input"`
	Result       Result    `json:"result"`
	Warnings     []string  `json:"warnings"`
	PayslipKey   string    `json:"-"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type RecordFilter struct {
	Period     string
	EmployeeID string
}

type RunFailure struct {
	EmployeeID string `json:"employeeId"`
	Matricule  string `json:"matricule"`
	Reason     string `json:"reason"`
}

type RunSummary struct {
	Period    string       `json:"period"`
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
	Failures  []RunFailure `json:"failures,omitempty"`
	// Unmatched lists variable pay matricules with no active employee.
	Unmatched []string `json:"unmatchedMatricules,omitempty"`
}
