package employee

import (
	"net/mail"
	"strings"

	"paie/internal/domain/auth"
)

// Normalize trims text fields and defaults the status.
func Normalize(emp *Employee) {
	emp.Matricule = strings.ToUpper(strings.TrimSpace(emp.Matricule))
	emp.FirstName = strings.TrimSpace(emp.FirstName)
	emp.LastName = strings.TrimSpace(emp.LastName)
	emp.Email = strings.ToLower(strings.TrimSpace(emp.Email))
	emp.Position = strings.TrimSpace(emp.Position)
	emp.Department = strings.TrimSpace(emp.Department)
	emp.BankAccount = strings.TrimSpace(emp.BankAccount)
	emp.Status = strings.ToLower(strings.TrimSpace(emp.Status))
	if emp.Status == "" {
		emp.Status = StatusActive
	}
}

func Validate(emp Employee) error {
	var issues []Issue
	add := func(field, reason string) {
		issues = append(issues, Issue{Field: field, Reason: reason})
	}
	if emp.Matricule == "" {
		add("matricule", "is required")
	}
	if emp.FirstName == "" {
		add("firstName", "is required")
	}
	if emp.LastName == "" {
		add("lastName", "is required")
	}
	if emp.Email != "" {
		if _, err := mail.ParseAddress(emp.Email); err != nil {
			add("email", "must be a valid email address")
		}
	}
	if emp.Status != StatusActive && emp.Status != StatusInactive {
		add("status", "must be active or inactive")
	}
	if emp.BaseSalary <= 0 {
		add("baseSalary", "must be greater than 0")
	}
	amounts := []struct {
		field string
		value int64
	}{
		{"allowances", emp.Allowances},
		{"exemptAllowances.housing", emp.ExemptAllowances.Housing},
		{"exemptAllowances.transport", emp.ExemptAllowances.Transport},
		{"exemptAllowances.costOfLiving", emp.ExemptAllowances.CostOfLiving},
		{"exemptAllowances.food", emp.ExemptAllowances.Food},
	}
	for _, a := range amounts {
		if a.value < 0 {
			add(a.field, "must not be negative")
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// FilterFields hides the bank account from roles that only review pay; only
// the last four characters remain visible.
func FilterFields(emp *Employee, user auth.UserContext) {
	if user.Role == auth.RoleAdmin {
		return
	}
	emp.BankAccount = MaskAccount(emp.BankAccount)
}

func MaskAccount(account string) string {
	if account == "" {
		return ""
	}
	runes := []rune(account)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
