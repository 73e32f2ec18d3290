package settings

import "time"

const (
	HeadcountDeclared = "declared"
	HeadcountActive   = "active"
)

// Company holds the single employer's settings. EmployeeCount drives the
// employer levy when HeadcountMode is declared; in active mode the number
// of active employees is used instead.
type Company struct {
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	CNSSNumber    string    `json:"cnssNumber"`
	EmployeeCount int       `json:"employeeCount"`
	HeadcountMode string    `json:"headcountMode"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
