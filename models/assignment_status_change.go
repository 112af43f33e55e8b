package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssignmentStatusChange is one entry in an assignment's append-only status
// history. Rows are only ever inserted; dispute tooling and the reconciler
// rely on this log staying immutable.
type AssignmentStatusChange struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	AssignmentID string      `gorm:"type:uuid;not null;index" json:"assignment_id"`
	Assignment   *Assignment `gorm:"foreignKey:AssignmentID" json:"-"`

	FromStatus AssignmentStatus `gorm:"not null" json:"from_status"`
	ToStatus   AssignmentStatus `gorm:"not null" json:"to_status"`
	ChangedAt  time.Time        `gorm:"not null" json:"changed_at"`
	ChangedBy  *string          `gorm:"type:uuid" json:"changed_by,omitempty"`
	Reason     *string          `gorm:"type:text" json:"reason,omitempty"`
}

// BeforeCreate hook to generate UUID and stamp ChangedAt
func (sc *AssignmentStatusChange) BeforeCreate(tx *gorm.DB) error {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	if sc.ChangedAt.IsZero() {
		sc.ChangedAt = time.Now().UTC()
	}
	return nil
}

// TableName specifies the table name for AssignmentStatusChange model
func (AssignmentStatusChange) TableName() string {
	return "assignment_status_changes"
}
