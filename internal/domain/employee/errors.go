package employee

import (
	"errors"
	"strings"
)

var (
	ErrNotFound       = errors.New("employee not found")
	ErrDuplicate      = errors.New("matricule already exists")
	ErrInvalidPayload = errors.New("invalid employee")
)

type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+" "+issue.Reason)
	}
	return ErrInvalidPayload.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidPayload
}
