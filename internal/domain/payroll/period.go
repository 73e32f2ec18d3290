package payroll

import (
	"strings"
	"time"
)

// ParsePeriod accepts a pay month in YYYY-MM form and returns its first day in UTC.
func ParsePeriod(raw string) (time.Time, error) {
	parsed, err := time.Parse(PeriodLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, ErrInvalidPeriod
	}
	return parsed.UTC(), nil
}

func FormatPeriod(t time.Time) string {
	return t.Format(PeriodLayout)
}
