package department

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Department is the batch-scope view of a department. Inactive departments
// cannot be used as a batch scope.
type Department struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"size:255;not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
