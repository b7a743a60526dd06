package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusActive     = "active"
	StatusSuspended  = "suspended"
	StatusTerminated = "terminated"
)

// Employee is the payroll engine's read model of an employee. Only the fields
// payroll needs are mapped; the rest of the employees table is ignored.
type Employee struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID        uuid.UUID  `gorm:"type:uuid;index"`
	DepartmentID     *uuid.UUID `gorm:"type:uuid;index"`
	PositionID       *uuid.UUID `gorm:"type:uuid"`
	EmployeeNumber   string
	FullName         string
	Email            string  `gorm:"uniqueIndex"`
	GradeLevel       *string `gorm:"type:varchar(32)"`
	PayFrequency     *string `gorm:"type:varchar(20)"`
	EmploymentStatus string  `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (e Employee) IsActive() bool {
	return e.EmploymentStatus == StatusActive
}

func (e Employee) HasGrade() bool {
	return e.GradeLevel != nil && *e.GradeLevel != ""
}

func (e Employee) DepartmentIDString() string {
	if e.DepartmentID == nil {
		return ""
	}
	return e.DepartmentID.String()
}
