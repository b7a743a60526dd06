package compensation

import (
	"time"

	"go-payroll/internal/shared/calc"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

const (
	AllowanceRegular  = "regular"
	AllowanceOvertime = "overtime"
)

const (
	ScopeCompany    = "company"
	ScopeDepartment = "department"
	ScopeGrade      = "grade"
	ScopeIndividual = "individual"
)

type Allowance struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name         string          `gorm:"type:varchar(120);not null"`
	Type         string          `gorm:"type:varchar(20);not null;default:'regular'"`
	Scope        string          `gorm:"type:varchar(20);not null;index"`
	DepartmentID *uuid.UUID      `gorm:"type:uuid;index"`
	GradeLevel   *string         `gorm:"type:varchar(32);index"`
	EmployeeID   *uuid.UUID      `gorm:"type:uuid;index"`
	Method       calc.Method     `gorm:"type:varchar(20);not null"`
	Value        decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	Status       string          `gorm:"type:varchar(20);not null;default:'pending'"`
	IsActive     bool            `gorm:"not null;default:true"`

	EffectiveFrom time.Time  `gorm:"type:date;not null"`
	EffectiveTo   *time.Time `gorm:"type:date"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Covers reports how many days of [start, end] the allowance is effective for.
func (a Allowance) Covers(start, end time.Time) int {
	from := start
	if a.EffectiveFrom.After(from) {
		from = a.EffectiveFrom
	}
	to := end
	if a.EffectiveTo != nil && a.EffectiveTo.Before(to) {
		to = *a.EffectiveTo
	}
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}

type Bonus struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	EmployeeID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name        string          `gorm:"type:varchar(120);not null"`
	Method      calc.Method     `gorm:"type:varchar(20);not null"`
	Value       decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	Status      string          `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentDate time.Time       `gorm:"type:date;not null;index"`
	ApprovedBy  *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Bonus) TableName() string {
	return "bonuses"
}
