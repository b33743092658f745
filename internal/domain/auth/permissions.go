package auth

import "context"

const (
	RoleHR          = "HR"
	RoleManager     = "Manager"
	RoleSystemAdmin = "SystemAdmin"
)

const (
	PermDashboardRead     = "reports.dashboard.read"
	PermEmployeesRead     = "employees.read"
	PermEmployeesWrite    = "employees.write"
	PermLeaveRead         = "leave.read"
	PermLeavePolicyWrite  = "leave.policies.write"
	PermLeaveGrant        = "leave.grant"
	PermLeaveApprove      = "leave.approve"
	PermYearEndRead       = "leave.yearend.read"
	PermYearEndLapse      = "leave.yearend.lapse"
	PermNotificationsRead = "notifications.read"
	PermAuditRead         = "audit.read"
	PermSystemAdmin       = "admin.system"
)

var DefaultPermissions = []string{
	PermDashboardRead,
	PermEmployeesRead,
	PermEmployeesWrite,
	PermLeaveRead,
	PermLeavePolicyWrite,
	PermLeaveGrant,
	PermLeaveApprove,
	PermYearEndRead,
	PermYearEndLapse,
	PermNotificationsRead,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleManager: {
		PermDashboardRead,
		PermEmployeesRead,
		PermLeaveRead,
		PermLeaveApprove,
		PermNotificationsRead,
	},
	RoleHR: {
		PermDashboardRead,
		PermEmployeesRead,
		PermEmployeesWrite,
		PermLeaveRead,
		PermLeavePolicyWrite,
		PermLeaveGrant,
		PermLeaveApprove,
		PermYearEndRead,
		PermYearEndLapse,
		PermNotificationsRead,
		PermAuditRead,
	},
	RoleSystemAdmin: {
		PermSystemAdmin,
		PermAuditRead,
	},
}

// StaticPermissions resolves permissions from RolePermissions without a database round trip.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, roleName, permission string) (bool, error) {
	for _, perm := range RolePermissions[roleName] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}

func ValidRole(roleName string) bool {
	_, ok := RolePermissions[roleName]
	return ok
}
