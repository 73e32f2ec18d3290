package employee

import (
	"time"

	"paie/internal/domain/payroll"
)

type Employee struct {
	ID               string                   `json:"id"`
	Matricule        string                   `json:"matricule"`
	FirstName        string                   `json:"firstName"`
	LastName         string                   `json:"lastName"`
	Email            string                   `json:"email"`
	Position         string                   `json:"position"`
	Department       string                   `json:"department"`
	HireDate         *time.Time               `json:"hireDate,omitempty"`
	Status           string                   `json:"status"`
	BaseSalary       int64                    `json:"baseSalary"`
	Allowances       int64                    `json:"allowances"`
	ExemptAllowances payroll.ExemptAllowances `json:"exemptAllowances"`
	BankAccount      string                   `json:"bankAccount,omitempty"`
	CreatedAt        time.Time                `json:"createdAt"`
	UpdatedAt        time.Time                `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

func (e Employee) PayProfile() payroll.PayProfile {
	return payroll.PayProfile{
		EmployeeID:     e.ID,
		Matricule:      e.Matricule,
		FullName:       e.FullName(),
		Active:         e.Status == StatusActive,
		HasBankAccount: e.BankAccount != "",
		BaseSalary:     e.BaseSalary,
		Allowances:     e.Allowances,
		Exempt:         e.ExemptAllowances,
	}
}

type Filter struct {
	Status string
	Search string
}
