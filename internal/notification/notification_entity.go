package notification

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypePayrollStatus  = "payroll_status"
	TypePayrollPaid    = "payroll_paid"
	TypeBatchCompleted = "payroll_batch_completed"
)

type Notification struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_notification_recipient,priority:1"`
	RecipientID uuid.UUID      `gorm:"type:uuid;not null;index:idx_notification_recipient,priority:2"`
	Type        string         `gorm:"type:varchar(40);not null"`
	Message     string         `gorm:"type:text;not null"`
	Payload     map[string]any `gorm:"type:jsonb;serializer:json"`
	ReadAt      *time.Time
	CreatedAt   time.Time `gorm:"not null"`
}
