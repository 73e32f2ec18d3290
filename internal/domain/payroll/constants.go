package payroll

const (
	WarningMissingBank    = "missing_bank_account"
	WarningNegativeNet    = "negative_net"
	WarningTaxableClamped = "taxable_clamped"
	WarningNetVariance    = "net_variance"

	JobPayrollRun = "payroll_run"

	PeriodLayout = "2006-01"
)
