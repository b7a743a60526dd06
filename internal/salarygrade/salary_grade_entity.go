package salarygrade

import (
	"fmt"
	"time"

	"go-payroll/internal/shared/calc"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SalaryGrade struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_salary_grade_level"`
	Level       string    `gorm:"type:varchar(32);not null;uniqueIndex:uq_salary_grade_level"`
	Description string    `gorm:"type:text"`
	// BasicSalary is stored per pay cadence in minor units; the engine never rescales it.
	BasicSalary int64 `gorm:"type:bigint;not null;default:0"`
	IsActive    bool  `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Components []GradeComponent `gorm:"foreignKey:SalaryGradeID"`
}

type GradeComponent struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SalaryGradeID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name          string          `gorm:"type:varchar(120);not null"`
	Method        calc.Method     `gorm:"type:varchar(20);not null"`
	Value         decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	IsActive      bool            `gorm:"not null;default:true"`
	SortOrder     int             `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ActiveComponents returns the active components in their configured order.
func (g SalaryGrade) ActiveComponents() []GradeComponent {
	out := make([]GradeComponent, 0, len(g.Components))
	for _, c := range g.Components {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}

func (g SalaryGrade) Validate() error {
	if g.BasicSalary < 0 {
		return fmt.Errorf("grade %s: basic salary must not be negative", g.Level)
	}
	for _, c := range g.Components {
		if err := calc.ValidateValue(c.Method, c.Value); err != nil {
			return fmt.Errorf("grade %s component %s: %w", g.Level, c.Name, err)
		}
	}
	return nil
}
