package rbac

import (
	"time"

	"github.com/google/uuid"
)

type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_role_name,priority:1"`
	Name        string    `gorm:"type:varchar(100);not null;uniqueIndex:uq_role_name,priority:2"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Permission struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Resource string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_permission,priority:1"`
	Action   string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_permission,priority:2"`
	Label    string
	Category string
}

type EmployeeRole struct {
	EmployeeID uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleID     uuid.UUID `gorm:"type:uuid;primaryKey"`
}

type RolePermission struct {
	RoleID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PermissionID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

// Catalog is every permission the HTTP routes check.
var Catalog = []Permission{
	{Resource: "payroll", Action: "read", Label: "View payrolls", Category: "payroll"},
	{Resource: "payroll", Action: "create", Label: "Prepare payrolls", Category: "payroll"},
	{Resource: "payroll", Action: "approve", Label: "Approve payrolls", Category: "payroll"},
	{Resource: "payroll", Action: "pay", Label: "Process payroll payments", Category: "payroll"},
	{Resource: "deduction", Action: "read", Label: "View deductions", Category: "deduction"},
	{Resource: "deduction", Action: "assign", Label: "Assign deductions", Category: "deduction"},
}
