package auth

const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
)

const (
	PermEmployeesRead  = "employees.read"
	PermEmployeesWrite = "employees.write"
	PermPayrollRead    = "payroll.read"
	PermPayrollCompute = "payroll.compute"
	PermPayrollDelete  = "payroll.delete"
	PermReportsRead    = "reports.read"
	PermSettingsRead   = "settings.read"
	PermSettingsWrite  = "settings.write"
	PermUsersManage    = "users.manage"
	PermAuditRead      = "audit.read"
)

var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermPayrollRead,
		PermPayrollCompute,
		PermPayrollDelete,
		PermReportsRead,
		PermSettingsRead,
		PermSettingsWrite,
		PermUsersManage,
		PermAuditRead,
	},
	RoleAccountant: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermPayrollRead,
		PermPayrollCompute,
		PermReportsRead,
		PermSettingsRead,
	},
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

// RoleChecker resolves permissions from the static role table.
type RoleChecker struct{}

func (RoleChecker) HasPermission(role, permission string) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
