package payroll

import (
	"time"

	"github.com/google/uuid"
)

type ApprovalEntry struct {
	Level     string    `json:"level"`
	Status    Status    `json:"status"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Remarks   string    `json:"remarks,omitempty"`
}

type BankDetails struct {
	BankName      string `json:"bank_name,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	Channel       string `json:"channel,omitempty"`
}

type PaymentDetails struct {
	Method      string      `json:"method"`
	Reference   string      `json:"reference"`
	BankDetails BankDetails `json:"bank_details"`
	Notes       string      `json:"notes,omitempty"`
	InitiatedBy string      `json:"initiated_by"`
	InitiatedAt time.Time   `json:"initiated_at"`
}

// PayrollRecord is unique per (company, employee, month, year, frequency).
type PayrollRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_payroll_period,priority:1;index:idx_payroll_company_status,priority:1"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_payroll_period,priority:2"`
	Month      int       `gorm:"type:smallint;not null;uniqueIndex:uq_payroll_period,priority:4"`
	Year       int       `gorm:"type:smallint;not null;uniqueIndex:uq_payroll_period,priority:3"`
	Frequency  Frequency `gorm:"type:varchar(12);not null;uniqueIndex:uq_payroll_period,priority:5"`

	PeriodStart time.Time `gorm:"type:date;not null"`
	PeriodEnd   time.Time `gorm:"type:date;not null"`

	SalaryGradeID *uuid.UUID `gorm:"type:uuid"`
	GradeLevel    string     `gorm:"type:varchar(32)"`

	// Money in minor units.
	BasicSalary         int64 `gorm:"type:bigint;not null;default:0"`
	TotalAllowances     int64 `gorm:"type:bigint;not null;default:0"`
	TotalBonuses        int64 `gorm:"type:bigint;not null;default:0"`
	GrossEarnings       int64 `gorm:"type:bigint;not null;default:0"`
	StatutoryDeductions int64 `gorm:"type:bigint;not null;default:0"`
	VoluntaryDeductions int64 `gorm:"type:bigint;not null;default:0"`
	TotalDeductions     int64 `gorm:"type:bigint;not null;default:0"`
	NetPay              int64 `gorm:"type:bigint;not null;default:0"`

	Breakdown    Breakdown       `gorm:"type:jsonb;not null;serializer:json"`
	Status       Status          `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_payroll_company_status,priority:2"`
	ApprovalFlow []ApprovalEntry `gorm:"type:jsonb;not null;serializer:json"`
	Payment      *PaymentDetails `gorm:"type:jsonb;serializer:json"`

	BatchID    *uuid.UUID `gorm:"type:uuid;index"`
	CreatedBy  uuid.UUID  `gorm:"type:uuid;not null"`
	ApprovedBy *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt *time.Time
	PaidAt     *time.Time `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PayrollRecord) TableName() string {
	return "payroll_records"
}

func (p PayrollRecord) Period() Period {
	return Period{Month: p.Month, Year: p.Year, Frequency: p.Frequency}
}

// applyCalculation copies computed figures onto the record.
func (p *PayrollRecord) applyCalculation(c Calculation) {
	p.BasicSalary = c.Totals.BasicSalary
	p.TotalAllowances = c.Totals.TotalAllowances
	p.TotalBonuses = c.Totals.TotalBonuses
	p.GrossEarnings = c.Totals.GrossEarnings
	p.StatutoryDeductions = c.Totals.StatutoryDeductions
	p.VoluntaryDeductions = c.Totals.VoluntaryDeductions
	p.TotalDeductions = c.Totals.TotalDeductions
	p.NetPay = c.Totals.NetPay
	p.Breakdown = c.Breakdown
}

func (p PayrollRecord) Totals() Totals {
	return Totals{
		BasicSalary:         p.BasicSalary,
		TotalAllowances:     p.TotalAllowances,
		TotalBonuses:        p.TotalBonuses,
		GrossEarnings:       p.GrossEarnings,
		StatutoryDeductions: p.StatutoryDeductions,
		VoluntaryDeductions: p.VoluntaryDeductions,
		TotalDeductions:     p.TotalDeductions,
		NetPay:              p.NetPay,
	}
}
