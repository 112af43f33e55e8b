package services

import (
	"fmt"

	"case_flow_app_go/models"

	"gorm.io/gorm"
)

// caseTransitions is the full transition table for case statuses. An edge
// absent from this table is never valid.
var caseTransitions = map[models.CaseStatus][]models.CaseStatus{
	models.CaseStatusPending:             {models.CaseStatusVerified, models.CaseStatusCancelled},
	models.CaseStatusVerified:            {models.CaseStatusLawyerRequested, models.CaseStatusCancelled},
	models.CaseStatusLawyerRequested:     {models.CaseStatusLawyerAssigned, models.CaseStatusCancelled},
	models.CaseStatusLawyerAssigned:      {models.CaseStatusFilingRequested, models.CaseStatusCancelled},
	models.CaseStatusFilingRequested:     {models.CaseStatusUnderReview, models.CaseStatusFiled, models.CaseStatusCancelled},
	models.CaseStatusUnderReview:         {models.CaseStatusApproved, models.CaseStatusRejected, models.CaseStatusCancelled},
	models.CaseStatusApproved:            {models.CaseStatusFiled, models.CaseStatusCancelled},
	models.CaseStatusRejected:            {models.CaseStatusPending, models.CaseStatusCancelled},
	models.CaseStatusFiled:               {models.CaseStatusSchedulingRequested, models.CaseStatusCancelled},
	models.CaseStatusSchedulingRequested: {models.CaseStatusHearingScheduled, models.CaseStatusCancelled},
	models.CaseStatusHearingScheduled:    {models.CaseStatusCompleted, models.CaseStatusRescheduled, models.CaseStatusCancelled},
	models.CaseStatusRescheduled:         {models.CaseStatusHearingScheduled, models.CaseStatusCompleted, models.CaseStatusCancelled},
	models.CaseStatusCompleted:           {},
	models.CaseStatusCancelled:           {},
}

// CaseTransition is the validated next state returned for the orchestrator to
// persist. The machine itself never writes.
type CaseTransition struct {
	Status          models.CaseStatus
	CurrentLawyerID *string
	// Demoted is set when a hearing_scheduled target was demoted to
	// lawyer_assigned because no active hearing record exists.
	Demoted bool
}

// CanTransitionCase reports whether the edge from -> to is in the transition table.
func CanTransitionCase(from, to models.CaseStatus) bool {
	for _, allowed := range caseTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateCaseTransition validates a requested case status transition and
// resolves the lawyer the target status requires, if any.
//
// For lawyer-bound target statuses the lawyer is resolved in order from the
// explicit lawyerID argument, the case's current pointer, and finally the live
// assignment record (self-repair for a half-applied earlier write). If none
// resolves, ErrMissingLawyerAssignment is returned.
//
// A hearing_scheduled target with no active hearing record is demoted to
// lawyer_assigned instead of failing; upstream callers do not pre-validate
// scheduling, and a consistent earlier status beats rejecting the operation.
func ValidateCaseTransition(db *gorm.DB, c *models.Case, target models.CaseStatus, lawyerID *string) (*CaseTransition, error) {
	if !models.IsValidCaseStatus(target) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}
	if !CanTransitionCase(c.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, target)
	}

	if target == models.CaseStatusHearingScheduled {
		hasHearing, err := HasActiveHearing(db, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check hearing record: %w", err)
		}
		if !hasHearing {
			target = models.CaseStatusLawyerAssigned
			resolved, err := resolveLawyer(db, c, lawyerID)
			if err != nil {
				return nil, err
			}
			return &CaseTransition{Status: target, CurrentLawyerID: resolved, Demoted: true}, nil
		}
	}

	if !models.IsLawyerBoundStatus(target) {
		// Non-lawyer-bound targets keep the existing pointer; operations that
		// end an engagement clear it explicitly.
		return &CaseTransition{Status: target, CurrentLawyerID: c.CurrentLawyerID}, nil
	}

	resolved, err := resolveLawyer(db, c, lawyerID)
	if err != nil {
		return nil, err
	}
	return &CaseTransition{Status: target, CurrentLawyerID: resolved}, nil
}

// resolveLawyer finds a lawyer for a lawyer-bound target: explicit argument,
// then the case pointer, then the live assignment record.
func resolveLawyer(db *gorm.DB, c *models.Case, lawyerID *string) (*string, error) {
	if lawyerID != nil && *lawyerID != "" {
		return lawyerID, nil
	}
	if c.CurrentLawyerID != nil && *c.CurrentLawyerID != "" {
		return c.CurrentLawyerID, nil
	}

	live, err := FindLiveAssignment(db, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lawyer from assignments: %w", err)
	}
	if live != nil {
		return &live.LawyerID, nil
	}
	return nil, fmt.Errorf("%w: case %s targeting %s", ErrMissingLawyerAssignment, c.ID, c.Status)
}

// FindLiveAssignment returns the case's assignment in accepted or active
// status, or nil when none exists.
func FindLiveAssignment(db *gorm.DB, caseID string) (*models.Assignment, error) {
	var assignment models.Assignment
	err := db.Where("case_id = ? AND status IN ?", caseID, models.LiveAssignmentStatuses).
		Order("assigned_at DESC").
		First(&assignment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}
