package services

import (
	"fmt"
	"math"
	"time"

	"case_flow_app_go/models"
)

// The assignment state machine mutates the record in memory only; every
// transition appends an AssignmentStatusChange to the in-memory history so
// the orchestrator can persist record and audit trail together.

// AcceptAssignment moves a pending assignment to accepted. Only the addressed
// lawyer may accept. Response time is recorded as whole hours since the
// request was made.
func AcceptAssignment(a *models.Assignment, respondingLawyerID string, note *string) error {
	if a.LawyerID != respondingLawyerID {
		return fmt.Errorf("%w: assignment %s is addressed to another lawyer", ErrNotAddressee, a.ID)
	}
	if a.Status != models.AssignmentStatusPending {
		return fmt.Errorf("%w: assignment %s is %s", ErrNotPending, a.ID, a.Status)
	}

	now := time.Now().UTC()
	from := a.Status
	a.Status = models.AssignmentStatusAccepted
	a.AcceptedAt = &now
	a.ResponseNote = note
	responseHours := roundHours(now.Sub(a.AssignedAt))
	a.ResponseTimeHours = &responseHours

	appendStatusChange(a, from, a.Status, &respondingLawyerID, note)
	return nil
}

// RejectAssignment moves a pending assignment to rejected, recording the reason.
func RejectAssignment(a *models.Assignment, respondingLawyerID string, reason *string) error {
	if a.LawyerID != respondingLawyerID {
		return fmt.Errorf("%w: assignment %s is addressed to another lawyer", ErrNotAddressee, a.ID)
	}
	if a.Status != models.AssignmentStatusPending {
		return fmt.Errorf("%w: assignment %s is %s", ErrNotPending, a.ID, a.Status)
	}

	from := a.Status
	a.Status = models.AssignmentStatusRejected
	a.RejectionReason = reason

	appendStatusChange(a, from, a.Status, &respondingLawyerID, reason)
	return nil
}

// ActivateAssignment moves an accepted assignment to active, marking the start
// of actual legal work on the case.
func ActivateAssignment(a *models.Assignment) error {
	if a.Status != models.AssignmentStatusAccepted {
		return fmt.Errorf("%w: assignment %s: %s -> active", ErrInvalidTransition, a.ID, a.Status)
	}

	now := time.Now().UTC()
	from := a.Status
	a.Status = models.AssignmentStatusActive
	a.ActivatedAt = &now

	appendStatusChange(a, from, a.Status, nil, nil)
	return nil
}

// CompleteAssignment moves an active assignment to completed. Completion time
// is recorded as whole hours since activation.
func CompleteAssignment(a *models.Assignment, notes *string) error {
	if a.Status != models.AssignmentStatusActive {
		return fmt.Errorf("%w: assignment %s: %s -> completed", ErrInvalidTransition, a.ID, a.Status)
	}

	now := time.Now().UTC()
	from := a.Status
	a.Status = models.AssignmentStatusCompleted
	a.CompletedAt = &now
	if a.ActivatedAt != nil {
		completionHours := roundHours(now.Sub(*a.ActivatedAt))
		a.CompletionTimeHours = &completionHours
	}

	appendStatusChange(a, from, a.Status, nil, notes)
	return nil
}

// WithdrawAssignment moves an accepted or active assignment to withdrawn,
// used when the case is cancelled.
func WithdrawAssignment(a *models.Assignment, reason *string) error {
	if a.Status != models.AssignmentStatusAccepted && a.Status != models.AssignmentStatusActive {
		return fmt.Errorf("%w: assignment %s: %s -> withdrawn", ErrInvalidTransition, a.ID, a.Status)
	}

	now := time.Now().UTC()
	from := a.Status
	a.Status = models.AssignmentStatusWithdrawn
	a.WithdrawnAt = &now

	appendStatusChange(a, from, a.Status, nil, reason)
	return nil
}

// appendStatusChange records a transition in the assignment's in-memory
// history. Entries with an empty ID are new and get persisted alongside the
// assignment write.
func appendStatusChange(a *models.Assignment, from, to models.AssignmentStatus, changedBy, reason *string) {
	a.StatusHistory = append(a.StatusHistory, models.AssignmentStatusChange{
		AssignmentID: a.ID,
		FromStatus:   from,
		ToStatus:     to,
		ChangedAt:    time.Now().UTC(),
		ChangedBy:    changedBy,
		Reason:       reason,
	})
}

func roundHours(d time.Duration) int {
	return int(math.Round(d.Hours()))
}
