package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssignmentStatus is the lifecycle status of a lawyer assignment.
type AssignmentStatus string

const (
	AssignmentStatusPending   AssignmentStatus = "pending"
	AssignmentStatusAccepted  AssignmentStatus = "accepted"
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusCompleted AssignmentStatus = "completed"
	AssignmentStatusWithdrawn AssignmentStatus = "withdrawn"
	AssignmentStatusRejected  AssignmentStatus = "rejected"
)

// AssignmentType records how the assignment was initiated.
type AssignmentType string

const (
	AssignmentTypeAuto          AssignmentType = "auto"
	AssignmentTypeManual        AssignmentType = "manual"
	AssignmentTypeAdminAssigned AssignmentType = "admin_assigned"
)

// LiveAssignmentStatuses are the statuses in which an assignment is the
// authoritative current engagement for its case. At most one assignment per
// case may be in one of these at a time.
var LiveAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusAccepted,
	AssignmentStatusActive,
}

// Assignment represents one lawyer's negotiation/engagement on one case.
// A case may accumulate many assignments over time (rejections, reassignment)
// but at most one live one.
type Assignment struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CaseID string `gorm:"type:uuid;not null;index" json:"case_id"`
	Case   *Case  `gorm:"foreignKey:CaseID" json:"case,omitempty"`

	LawyerID string `gorm:"type:uuid;not null;index" json:"lawyer_id"`
	Lawyer   *User  `gorm:"foreignKey:LawyerID" json:"lawyer,omitempty"`

	ClientID string `gorm:"type:uuid;not null;index" json:"client_id"`
	Client   *User  `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	AssignmentType AssignmentType   `gorm:"not null;default:manual" json:"assignment_type"`
	Status         AssignmentStatus `gorm:"not null;default:pending;index" json:"status"`

	// Free-text negotiation messages (sanitized before storage)
	RequestMessage  *string `gorm:"type:text" json:"request_message,omitempty"`
	ResponseNote    *string `gorm:"type:text" json:"response_note,omitempty"`
	RejectionReason *string `gorm:"type:text" json:"rejection_reason,omitempty"`

	// Lifecycle timestamps
	AssignedAt  time.Time  `gorm:"not null" json:"assigned_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	WithdrawnAt *time.Time `json:"withdrawn_at,omitempty"`

	// Derived metrics (hours, rounded), computed from timestamp deltas
	ResponseTimeHours   *int `json:"response_time_hours,omitempty"`
	CompletionTimeHours *int `json:"completion_time_hours,omitempty"`

	// Optimistic concurrency
	Version int `gorm:"not null;default:0" json:"-"`

	// Append-only audit trail of every status change
	StatusHistory []AssignmentStatusChange `gorm:"foreignKey:AssignmentID" json:"status_history,omitempty"`
}

// BeforeCreate hook to generate UUID and stamp AssignedAt
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	return nil
}

// TableName specifies the table name for Assignment model
func (Assignment) TableName() string {
	return "assignments"
}

// IsLive checks if the assignment is the authoritative current engagement
func (a *Assignment) IsLive() bool {
	return a.Status == AssignmentStatusAccepted || a.Status == AssignmentStatusActive
}

// IsTerminal checks if the assignment is in a terminal status
func (a *Assignment) IsTerminal() bool {
	switch a.Status {
	case AssignmentStatusRejected, AssignmentStatusWithdrawn, AssignmentStatusCompleted:
		return true
	}
	return false
}

// IsValidAssignmentStatus checks if the status is valid
func IsValidAssignmentStatus(status AssignmentStatus) bool {
	switch status {
	case AssignmentStatusPending, AssignmentStatusAccepted, AssignmentStatusActive,
		AssignmentStatusCompleted, AssignmentStatusWithdrawn, AssignmentStatusRejected:
		return true
	}
	return false
}

// IsValidAssignmentType checks if the assignment type is valid
func IsValidAssignmentType(t AssignmentType) bool {
	return t == AssignmentTypeAuto || t == AssignmentTypeManual || t == AssignmentTypeAdminAssigned
}
