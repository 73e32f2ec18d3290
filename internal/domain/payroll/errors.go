package payroll

import (
	"errors"
	"strings"
)

var (
	ErrInvalidInput   = errors.New("invalid payroll input")
	ErrConfiguration  = errors.New("invalid rate configuration")
	ErrInvalidPeriod  = errors.New("pay period must use YYYY-MM format")
	ErrRecordNotFound = errors.New("payroll record not found")
	ErrInactive       = errors.New("employee is not active")
	ErrQueueFull      = errors.New("payroll job queue is full")
)

type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// InputError lists every offending input field. It matches ErrInvalidInput.
type InputError struct {
	Issues []FieldIssue
}

func (e *InputError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+" "+issue.Reason)
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return ErrConfiguration.Error() + ": " + e.Field + " " + e.Reason
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}
