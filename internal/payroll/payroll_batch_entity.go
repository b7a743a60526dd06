package payroll

import (
	"time"

	"github.com/google/uuid"
)

type BatchScope string

const (
	ScopeEmployee     BatchScope = "employee"
	ScopeDepartment   BatchScope = "department"
	ScopeOrganization BatchScope = "organization"
)

func (s BatchScope) IsValid() bool {
	switch s {
	case ScopeEmployee, ScopeDepartment, ScopeOrganization:
		return true
	}
	return false
}

// Per-employee outcome states.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Skip reasons.
const (
	SkipAlreadyExists = "ALREADY_EXISTS"
	SkipLocked        = "LOCKED"
)

type BatchOutcome struct {
	EmployeeID     string  `json:"employee_id"`
	EmployeeNumber string  `json:"employee_number,omitempty"`
	Status         string  `json:"status"`
	Reason         string  `json:"reason,omitempty"`
	Message        string  `json:"message,omitempty"`
	PayrollID      string  `json:"payroll_id,omitempty"`
	PayrollStatus  Status  `json:"payroll_status,omitempty"`
	Totals         *Totals `json:"totals,omitempty"`
}

// BatchSummary is written once per batch run and never updated.
type BatchSummary struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	BatchNumber string     `gorm:"type:varchar(32);not null"`
	Scope       BatchScope `gorm:"type:varchar(20);not null"`
	TargetID    *uuid.UUID `gorm:"type:uuid"`
	Month       int        `gorm:"type:smallint;not null"`
	Year        int        `gorm:"type:smallint;not null"`
	Frequency   Frequency  `gorm:"type:varchar(12);not null"`

	Attempted int `gorm:"not null"`
	Processed int `gorm:"not null"`
	Skipped   int `gorm:"not null"`
	Failed    int `gorm:"not null"`

	TotalGrossEarnings int64 `gorm:"type:bigint;not null;default:0"`
	TotalDeductions    int64 `gorm:"type:bigint;not null;default:0"`
	TotalNetPay        int64 `gorm:"type:bigint;not null;default:0"`

	Outcomes []BatchOutcome `gorm:"type:jsonb;not null;serializer:json"`
	Warnings []string       `gorm:"type:jsonb;not null;serializer:json"`
	Errors   []string       `gorm:"type:jsonb;not null;serializer:json"`

	InitiatedBy uuid.UUID `gorm:"type:uuid;not null"`
	StartedAt   time.Time `gorm:"not null"`
	CompletedAt time.Time `gorm:"not null"`
	CreatedAt   time.Time
}

func (BatchSummary) TableName() string {
	return "payroll_batches"
}

// tally recomputes counts and money totals from the outcome list.
func (b *BatchSummary) tally() {
	b.Attempted = len(b.Outcomes)
	b.Processed, b.Skipped, b.Failed = 0, 0, 0
	b.TotalGrossEarnings, b.TotalDeductions, b.TotalNetPay = 0, 0, 0
	for _, o := range b.Outcomes {
		switch o.Status {
		case OutcomeProcessed:
			b.Processed++
			if o.Totals != nil {
				b.TotalGrossEarnings += o.Totals.GrossEarnings
				b.TotalDeductions += o.Totals.TotalDeductions
				b.TotalNetPay += o.Totals.NetPay
			}
		case OutcomeSkipped:
			b.Skipped++
		default:
			b.Failed++
		}
	}
}
