package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hearing statuses
const (
	HearingStatusScheduled   = "scheduled"
	HearingStatusRescheduled = "rescheduled"
	HearingStatusHeld        = "held"
	HearingStatusCancelled   = "cancelled"
)

// Hearing is the scheduled-hearing record for a case. A case may only enter
// hearing_scheduled when one of these exists.
type Hearing struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CaseID string `gorm:"type:uuid;not null;index" json:"case_id"`
	Case   *Case  `gorm:"foreignKey:CaseID" json:"case,omitempty"`

	District  string    `gorm:"not null;index" json:"district"`
	Date      time.Time `gorm:"not null;index" json:"date"`
	StartTime string    `gorm:"not null;size:5" json:"start_time"` // "HH:MM"
	EndTime   string    `gorm:"not null;size:5" json:"end_time"`   // "HH:MM"
	Room      string    `gorm:"size:50" json:"room,omitempty"`

	Status string `gorm:"not null;default:scheduled;index" json:"status"`

	ScheduledByID *string `gorm:"type:uuid" json:"scheduled_by_id,omitempty"`
	ScheduledBy   *User   `gorm:"foreignKey:ScheduledByID" json:"scheduled_by,omitempty"`
}

// BeforeCreate hook to generate UUID
func (h *Hearing) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Hearing model
func (Hearing) TableName() string {
	return "hearings"
}

// IsActive checks if the hearing still occupies its slot
func (h *Hearing) IsActive() bool {
	return h.Status == HearingStatusScheduled || h.Status == HearingStatusRescheduled
}
