package payroll

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

const (
	MethodBankTransfer = "bank_transfer"
	MethodCash         = "cash"
	MethodCheque       = "cheque"
	MethodMobileMoney  = "mobile_money"
)

func validPaymentMethod(m string) bool {
	switch m {
	case MethodBankTransfer, MethodCash, MethodCheque, MethodMobileMoney:
		return true
	}
	return false
}

// Payment is one ledger entry per payment reference. It is opened as pending
// when payment is initiated and finalized exactly once.
type Payment struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uq_payment_reference,priority:1"`
	PayrollID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	Reference   string        `gorm:"type:varchar(32);not null;uniqueIndex:uq_payment_reference,priority:2"`
	Amount      int64         `gorm:"type:bigint;not null"`
	Status      PaymentStatus `gorm:"type:varchar(12);not null;index"`
	Method      string        `gorm:"type:varchar(20)"`
	BankDetails BankDetails   `gorm:"type:jsonb;serializer:json"`
	Notes       string        `gorm:"type:text"`
	Remarks     string        `gorm:"type:text"`
	InitiatedBy uuid.UUID     `gorm:"type:uuid;not null"`
	ProcessedBy *uuid.UUID    `gorm:"type:uuid"`
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Payment) TableName() string {
	return "payroll_payments"
}
