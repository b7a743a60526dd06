package deduction

import (
	"fmt"
	"time"

	"go-payroll/internal/shared/calc"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ScopeCompany    = "company"
	ScopeDepartment = "department"
	ScopeIndividual = "individual"
)

const (
	KindStatutory = "statutory"
	KindVoluntary = "voluntary"
)

// Categories. Statutory deductions use tax, pension, housing_fund or custom;
// voluntary deductions use loan, other or custom.
const (
	CategoryTax         = "tax"
	CategoryPension     = "pension"
	CategoryHousingFund = "housing_fund"
	CategoryLoan        = "loan"
	CategoryOther       = "other"
	CategoryCustom      = "custom"
)

const (
	DurationOngoing = "ongoing"
	DurationOneOff  = "one_off"
)

const (
	HistoryAssign = "assign"
	HistoryRemove = "remove"
)

type Deduction struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name         string          `gorm:"type:varchar(120);not null"`
	Scope        string          `gorm:"type:varchar(20);not null;index"`
	DepartmentID *uuid.UUID      `gorm:"type:uuid;index"`
	Kind         string          `gorm:"type:varchar(20);not null"`
	Category     string          `gorm:"type:varchar(20);not null;default:'other'"`
	Method       calc.Method     `gorm:"type:varchar(20);not null"`
	Value        decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	// Base overrides the category default when set.
	Base          *calc.Base `gorm:"type:varchar(10)"`
	EffectiveDate time.Time  `gorm:"type:date;not null"`
	ExpiryDate    *time.Time `gorm:"type:date"`
	Duration      string     `gorm:"type:varchar(10);not null;default:'ongoing'"`
	PeriodMonth   *int       `gorm:"type:smallint"`
	PeriodYear    *int       `gorm:"type:smallint"`
	IsActive      bool       `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type DeductionAssignment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index"`
	DeductionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_deduction_assignment"`
	EmployeeID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_deduction_assignment;index"`
	IsActive    bool      `gorm:"not null;default:true"`
	AssignedBy  uuid.UUID `gorm:"type:uuid;not null"`
	AssignedAt  time.Time `gorm:"not null"`
	RemovedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DeductionHistory rows are only ever inserted.
type DeductionHistory struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index"`
	DeductionID uuid.UUID `gorm:"type:uuid;not null;index"`
	EmployeeID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Action      string    `gorm:"type:varchar(10);not null"`
	ActorID     uuid.UUID `gorm:"type:uuid;not null"`
	Reason      string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (DeductionHistory) TableName() string {
	return "deduction_histories"
}

func (d Deduction) Validate() error {
	if !d.Method.IsValid() {
		return fmt.Errorf("deduction %s: unknown method %q", d.Name, d.Method)
	}
	if err := calc.ValidateRate(d.Method, d.Value); err != nil {
		return fmt.Errorf("deduction %s: %w", d.Name, err)
	}
	if d.Kind != KindStatutory && d.Kind != KindVoluntary {
		return fmt.Errorf("deduction %s: unknown kind %q", d.Name, d.Kind)
	}
	if d.Base != nil && !d.Base.IsValid() {
		return fmt.Errorf("deduction %s: unknown base %q", d.Name, *d.Base)
	}
	if d.Duration == DurationOneOff && (d.PeriodMonth == nil || d.PeriodYear == nil) {
		return fmt.Errorf("deduction %s: one-off deduction requires a period", d.Name)
	}
	return nil
}

// AppliesInPeriod reports whether the deduction is in force for the pay
// window [start, end]. A one-off deduction applies to the window that
// contains the first day of its declared month, so quarterly and annual
// windows pick up one-offs declared for any month they span.
func (d Deduction) AppliesInPeriod(start, end time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.EffectiveDate.After(end) {
		return false
	}
	if d.ExpiryDate != nil && d.ExpiryDate.Before(start) {
		return false
	}
	if d.Duration == DurationOneOff {
		if d.PeriodMonth == nil || d.PeriodYear == nil {
			return false
		}
		declared := time.Date(*d.PeriodYear, time.Month(*d.PeriodMonth), 1, 0, 0, 0, 0, start.Location())
		return !declared.Before(start) && !declared.After(end)
	}
	return true
}

// CalculationBase is gross earnings for tax and basic salary otherwise,
// unless the deduction names its own base.
func (d Deduction) CalculationBase() calc.Base {
	if d.Base != nil {
		return *d.Base
	}
	if d.Kind == KindStatutory && d.Category == CategoryTax {
		return calc.BaseGross
	}
	return calc.BaseBasic
}

func (d Deduction) Assignable() bool {
	return d.Scope == ScopeDepartment || d.Scope == ScopeIndividual
}
