package services

import (
	"testing"
	"time"

	"case_flow_app_go/models"

	"github.com/stretchr/testify/assert"
)

func pendingAssignment(lawyerID string) *models.Assignment {
	return &models.Assignment{
		ID:         "a-1",
		CaseID:     "c-1",
		LawyerID:   lawyerID,
		ClientID:   "client-1",
		Status:     models.AssignmentStatusPending,
		AssignedAt: time.Now().UTC().Add(-3 * time.Hour),
	}
}

func TestAcceptAssignment(t *testing.T) {
	t.Run("Only Addressee May Accept", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		err := AcceptAssignment(a, "lawyer-2", nil)
		assert.ErrorIs(t, err, ErrNotAddressee)
		assert.Equal(t, models.AssignmentStatusPending, a.Status)
	})

	t.Run("Only Pending May Be Accepted", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		a.Status = models.AssignmentStatusRejected
		err := AcceptAssignment(a, "lawyer-1", nil)
		assert.ErrorIs(t, err, ErrNotPending)
	})

	t.Run("Accept Records Timestamps And Response Time", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		note := "taking this on"
		err := AcceptAssignment(a, "lawyer-1", &note)
		assert.NoError(t, err)
		assert.Equal(t, models.AssignmentStatusAccepted, a.Status)
		assert.NotNil(t, a.AcceptedAt)
		assert.Equal(t, note, *a.ResponseNote)
		assert.NotNil(t, a.ResponseTimeHours)
		assert.Equal(t, 3, *a.ResponseTimeHours)

		assert.Len(t, a.StatusHistory, 1)
		assert.Equal(t, models.AssignmentStatusPending, a.StatusHistory[0].FromStatus)
		assert.Equal(t, models.AssignmentStatusAccepted, a.StatusHistory[0].ToStatus)
		assert.Equal(t, "lawyer-1", *a.StatusHistory[0].ChangedBy)
	})
}

func TestRejectAssignment(t *testing.T) {
	t.Run("Only Addressee May Reject", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		err := RejectAssignment(a, "lawyer-2", nil)
		assert.ErrorIs(t, err, ErrNotAddressee)
	})

	t.Run("Reject Records Reason", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		reason := "conflict of interest"
		err := RejectAssignment(a, "lawyer-1", &reason)
		assert.NoError(t, err)
		assert.Equal(t, models.AssignmentStatusRejected, a.Status)
		assert.Equal(t, reason, *a.RejectionReason)
		assert.Len(t, a.StatusHistory, 1)
	})

	t.Run("Accepted May Not Be Rejected", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		assert.NoError(t, AcceptAssignment(a, "lawyer-1", nil))
		err := RejectAssignment(a, "lawyer-1", nil)
		assert.ErrorIs(t, err, ErrNotPending)
	})
}

func TestActivateAndCompleteAssignment(t *testing.T) {
	t.Run("Activate Requires Accepted", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		err := ActivateAssignment(a)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Complete Requires Active", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		assert.NoError(t, AcceptAssignment(a, "lawyer-1", nil))
		err := CompleteAssignment(a, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Full Lifecycle Accumulates History", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		assert.NoError(t, AcceptAssignment(a, "lawyer-1", nil))
		assert.NoError(t, ActivateAssignment(a))
		assert.NotNil(t, a.ActivatedAt)

		// Backdate activation so the completion metric is non-zero
		activated := time.Now().UTC().Add(-48 * time.Hour)
		a.ActivatedAt = &activated

		notes := "judgment delivered"
		assert.NoError(t, CompleteAssignment(a, &notes))
		assert.Equal(t, models.AssignmentStatusCompleted, a.Status)
		assert.NotNil(t, a.CompletedAt)
		assert.Equal(t, 48, *a.CompletionTimeHours)

		assert.Len(t, a.StatusHistory, 3)
		assert.Equal(t, models.AssignmentStatusActive, a.StatusHistory[2].FromStatus)
		assert.Equal(t, models.AssignmentStatusCompleted, a.StatusHistory[2].ToStatus)
	})
}

func TestWithdrawAssignment(t *testing.T) {
	t.Run("Pending May Not Be Withdrawn", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		err := WithdrawAssignment(a, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Withdraw From Accepted", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		assert.NoError(t, AcceptAssignment(a, "lawyer-1", nil))

		reason := "relocation"
		err := WithdrawAssignment(a, &reason)
		assert.NoError(t, err)
		assert.Equal(t, models.AssignmentStatusWithdrawn, a.Status)
		assert.NotNil(t, a.WithdrawnAt)
	})

	t.Run("Withdraw From Active", func(t *testing.T) {
		a := pendingAssignment("lawyer-1")
		assert.NoError(t, AcceptAssignment(a, "lawyer-1", nil))
		assert.NoError(t, ActivateAssignment(a))
		assert.NoError(t, WithdrawAssignment(a, nil))
		assert.Equal(t, models.AssignmentStatusWithdrawn, a.Status)
	})
}
