package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionOrderOpened     = "order.opened"
	ActionOrderClosed     = "order.closed"
	ActionOrderVoided     = "order.voided"
	ActionItemVoided      = "order_item.voided"
	ActionDiscountApplied = "discount.applied"
	ActionPaymentRecorded = "payment.recorded"
	ActionShiftAssigned   = "shift.assigned"
	ActionShiftCancelled  = "shift.cancelled"

	TargetOrder = "order"
	TargetShift = "shift"
)

type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:text"`
	Action     string            `json:"action" gorm:"type:text;not null"`
	TargetType string            `json:"target_type" gorm:"type:text;not null"`
	TargetID   string            `json:"target_id" gorm:"type:text;not null;index"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	RequestID  *string           `json:"request_id,omitempty" gorm:"type:text"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry describes one audited mutation.
type Entry struct {
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

// Service records audit entries on the caller's transaction so the trail
// commits or rolls back with the mutation it describes.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	ListForTarget(ctx context.Context, targetType, targetID string) ([]AuditLog, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	ListByTarget(ctx context.Context, db *gorm.DB, targetType, targetID string) ([]AuditLog, error)
}

var ErrInvalidAction = errors.New("invalid_action")
