package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Entry is one append-only audit record.
type Entry struct {
	CompanyID  string
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	Details    map[string]any
	OccurredAt time.Time
}

//go:generate mockgen -source=audit.go -destination=mock/audit_mock.go -package=mock
type Trail interface {
	Record(ctx context.Context, entry Entry) error
}

type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  *uuid.UUID     `gorm:"type:uuid;index"`
	Action     string         `gorm:"type:varchar(60);not null;index"`
	EntityType string         `gorm:"type:varchar(40);not null"`
	EntityID   string         `gorm:"type:varchar(64);not null;index"`
	ActorID    string         `gorm:"type:varchar(64)"`
	Details    map[string]any `gorm:"type:jsonb;serializer:json"`
	CreatedAt  time.Time      `gorm:"not null"`
}

type store struct {
	db *gorm.DB
}

// NewStore writes entries to the audit_logs table. Rows are never updated.
func NewStore(db *gorm.DB) Trail {
	return &store{db: db}
}

func (s *store) Record(ctx context.Context, entry Entry) error {
	row := AuditLog{
		ID:         uuid.New(),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		ActorID:    entry.ActorID,
		Details:    entry.Details,
		CreatedAt:  entry.OccurredAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if companyID, err := uuid.Parse(entry.CompanyID); err == nil {
		row.CompanyID = &companyID
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

type logTrail struct {
	logger *zap.Logger
}

// NewLogTrail records entries as structured log lines.
func NewLogTrail(logger *zap.Logger) Trail {
	if logger == nil {
		logger = zap.L()
	}
	return &logTrail{logger: logger.Named("audit")}
}

func (l *logTrail) Record(ctx context.Context, entry Entry) error {
	at := entry.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	l.logger.Info("audit event",
		zap.String("timestamp", at.Format(time.RFC3339)),
		zap.String("company_id", entry.CompanyID),
		zap.String("action", entry.Action),
		zap.String("entity_type", entry.EntityType),
		zap.String("entity_id", entry.EntityID),
		zap.String("actor_id", entry.ActorID),
		zap.Any("details", entry.Details),
	)
	return nil
}

type multiTrail []Trail

// Multi records to every trail and returns the first error.
func Multi(trails ...Trail) Trail {
	return multiTrail(trails)
}

func (m multiTrail) Record(ctx context.Context, entry Entry) error {
	var first error
	for _, t := range m {
		if err := t.Record(ctx, entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}
