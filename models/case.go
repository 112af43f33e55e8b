package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseStatus is the lifecycle status of a case. Transitions between statuses
// are validated by services.ValidateCaseTransition; nothing else may change it.
type CaseStatus string

const (
	CaseStatusPending             CaseStatus = "pending"
	CaseStatusVerified            CaseStatus = "verified"
	CaseStatusLawyerRequested     CaseStatus = "lawyer_requested"
	CaseStatusLawyerAssigned      CaseStatus = "lawyer_assigned"
	CaseStatusFilingRequested     CaseStatus = "filing_requested"
	CaseStatusUnderReview         CaseStatus = "under_review"
	CaseStatusApproved            CaseStatus = "approved"
	CaseStatusRejected            CaseStatus = "rejected"
	CaseStatusFiled               CaseStatus = "filed"
	CaseStatusSchedulingRequested CaseStatus = "scheduling_requested"
	CaseStatusHearingScheduled    CaseStatus = "hearing_scheduled"
	CaseStatusRescheduled         CaseStatus = "rescheduled"
	CaseStatusCompleted           CaseStatus = "completed"
	CaseStatusCancelled           CaseStatus = "cancelled"
)

// AllCaseStatuses lists every valid case status.
var AllCaseStatuses = []CaseStatus{
	CaseStatusPending,
	CaseStatusVerified,
	CaseStatusLawyerRequested,
	CaseStatusLawyerAssigned,
	CaseStatusFilingRequested,
	CaseStatusUnderReview,
	CaseStatusApproved,
	CaseStatusRejected,
	CaseStatusFiled,
	CaseStatusSchedulingRequested,
	CaseStatusHearingScheduled,
	CaseStatusRescheduled,
	CaseStatusCompleted,
	CaseStatusCancelled,
}

// lawyerBoundStatuses are the statuses that require a non-null CurrentLawyerID.
var lawyerBoundStatuses = map[CaseStatus]bool{
	CaseStatusLawyerAssigned:      true,
	CaseStatusFilingRequested:     true,
	CaseStatusUnderReview:         true,
	CaseStatusApproved:            true,
	CaseStatusFiled:               true,
	CaseStatusSchedulingRequested: true,
	CaseStatusHearingScheduled:    true,
	CaseStatusRescheduled:         true,
}

// Case represents a legal case filed by a client
type Case struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Client relationship (User with role 'client')
	ClientID string `gorm:"type:uuid;not null;index" json:"client_id"`
	Client   User   `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	// Case identification
	CaseNumber  string `gorm:"not null;uniqueIndex" json:"case_number"`
	CaseType    string `gorm:"not null;index" json:"case_type"`
	District    string `gorm:"not null" json:"district"`
	Description string `gorm:"type:text;not null" json:"description"`

	// Parties
	PlaintiffName     string  `gorm:"not null" json:"plaintiff_name"`
	PlaintiffIDNumber string  `json:"plaintiff_id_number,omitempty"`
	DefendantName     string  `gorm:"not null" json:"defendant_name"`
	DefendantIDNumber *string `json:"defendant_id_number,omitempty"`

	// Claim details
	MonetaryValue *float64 `json:"monetary_value,omitempty"`
	ReliefSought  *string  `gorm:"type:text" json:"relief_sought,omitempty"`

	// Status and lifecycle
	Status          CaseStatus `gorm:"not null;default:pending;index" json:"status"`
	StatusChangedAt *time.Time `json:"status_changed_at,omitempty"`
	StatusChangedBy *string    `gorm:"type:uuid" json:"status_changed_by,omitempty"`

	// Denormalized pointer to the lawyer presently responsible. Authoritative
	// ownership lives in the Assignment record; the reconciler keeps the two
	// in sync when a half-applied write leaves them divergent.
	CurrentLawyerID *string `gorm:"type:uuid;index" json:"current_lawyer_id,omitempty"`
	CurrentLawyer   *User   `gorm:"foreignKey:CurrentLawyerID" json:"current_lawyer,omitempty"`

	// Court filing
	CourtReference *string    `gorm:"size:100;uniqueIndex" json:"court_reference,omitempty"`
	FiledAt        *time.Time `json:"filed_at,omitempty"`

	// Hearing details (denormalized from the Hearing record for display)
	HearingDate *time.Time `json:"hearing_date,omitempty"`
	HearingTime *string    `gorm:"size:20" json:"hearing_time,omitempty"`
	HearingRoom *string    `gorm:"size:50" json:"hearing_room,omitempty"`

	// Optimistic concurrency: every status/lawyer write checks and bumps this.
	Version int `gorm:"not null;default:0" json:"-"`

	// Relationships
	Assignments []Assignment   `gorm:"foreignKey:CaseID" json:"assignments,omitempty"`
	Documents   []CaseDocument `gorm:"foreignKey:CaseID" json:"documents,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}

// IsTerminal checks if the case is in a terminal status
func (c *Case) IsTerminal() bool {
	return c.Status == CaseStatusCompleted || c.Status == CaseStatusCancelled
}

// RequiresLawyer checks if the case's current status requires a bound lawyer
func (c *Case) RequiresLawyer() bool {
	return IsLawyerBoundStatus(c.Status)
}

// IsLawyerBoundStatus checks if a status requires a non-null current lawyer
func IsLawyerBoundStatus(status CaseStatus) bool {
	return lawyerBoundStatuses[status]
}

// IsValidCaseStatus checks if the status is valid
func IsValidCaseStatus(status CaseStatus) bool {
	for _, s := range AllCaseStatuses {
		if s == status {
			return true
		}
	}
	return false
}
