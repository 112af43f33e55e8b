package services

import (
	"testing"

	"case_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStateMachineTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	db.AutoMigrate(&models.User{}, &models.Case{}, &models.Assignment{}, &models.AssignmentStatusChange{}, &models.Hearing{})
	return db
}

func TestCanTransitionCase(t *testing.T) {
	// The expected edges are restated here independently of the production
	// table, then checked over every status pair so a table edit in either
	// direction fails loudly.
	forwardEdges := map[models.CaseStatus][]models.CaseStatus{
		models.CaseStatusPending:             {models.CaseStatusVerified},
		models.CaseStatusVerified:            {models.CaseStatusLawyerRequested},
		models.CaseStatusLawyerRequested:     {models.CaseStatusLawyerAssigned},
		models.CaseStatusLawyerAssigned:      {models.CaseStatusFilingRequested},
		models.CaseStatusFilingRequested:     {models.CaseStatusUnderReview, models.CaseStatusFiled},
		models.CaseStatusUnderReview:         {models.CaseStatusApproved, models.CaseStatusRejected},
		models.CaseStatusApproved:            {models.CaseStatusFiled},
		models.CaseStatusRejected:            {models.CaseStatusPending},
		models.CaseStatusFiled:               {models.CaseStatusSchedulingRequested},
		models.CaseStatusSchedulingRequested: {models.CaseStatusHearingScheduled},
		models.CaseStatusHearingScheduled:    {models.CaseStatusCompleted, models.CaseStatusRescheduled},
		models.CaseStatusRescheduled:         {models.CaseStatusHearingScheduled, models.CaseStatusCompleted},
	}
	isTerminal := func(s models.CaseStatus) bool {
		return s == models.CaseStatusCompleted || s == models.CaseStatusCancelled
	}
	expected := func(from, to models.CaseStatus) bool {
		if to == models.CaseStatusCancelled {
			return !isTerminal(from)
		}
		for _, next := range forwardEdges[from] {
			if next == to {
				return true
			}
		}
		return false
	}

	t.Run("Every Status Pair Matches The Table", func(t *testing.T) {
		assert.Len(t, models.AllCaseStatuses, 14)
		for _, from := range models.AllCaseStatuses {
			for _, to := range models.AllCaseStatuses {
				assert.Equal(t, expected(from, to), CanTransitionCase(from, to), "%s -> %s", from, to)
			}
		}
	})

	t.Run("Terminal Statuses Have No Outgoing Edges", func(t *testing.T) {
		for _, to := range models.AllCaseStatuses {
			assert.False(t, CanTransitionCase(models.CaseStatusCompleted, to))
			assert.False(t, CanTransitionCase(models.CaseStatusCancelled, to))
		}
	})

	t.Run("Self Transitions Rejected", func(t *testing.T) {
		for _, s := range models.AllCaseStatuses {
			assert.False(t, CanTransitionCase(s, s))
		}
	})
}

func TestValidateCaseTransition(t *testing.T) {
	db := setupStateMachineTestDB()
	lawyerID := "lawyer-1"

	t.Run("Unknown Target Status", func(t *testing.T) {
		c := &models.Case{ID: "c-unknown", Status: models.CaseStatusPending}
		_, err := ValidateCaseTransition(db, c, models.CaseStatus("bogus"), nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Table Violation", func(t *testing.T) {
		c := &models.Case{ID: "c-skip", Status: models.CaseStatusPending}
		_, err := ValidateCaseTransition(db, c, models.CaseStatusFiled, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Lawyer Resolved From Explicit Argument", func(t *testing.T) {
		c := &models.Case{ID: "c-explicit", Status: models.CaseStatusLawyerRequested}
		tr, err := ValidateCaseTransition(db, c, models.CaseStatusLawyerAssigned, &lawyerID)
		assert.NoError(t, err)
		assert.Equal(t, models.CaseStatusLawyerAssigned, tr.Status)
		assert.Equal(t, lawyerID, *tr.CurrentLawyerID)
	})

	t.Run("Lawyer Resolved From Case Pointer", func(t *testing.T) {
		c := &models.Case{ID: "c-pointer", Status: models.CaseStatusFilingRequested, CurrentLawyerID: &lawyerID}
		tr, err := ValidateCaseTransition(db, c, models.CaseStatusUnderReview, nil)
		assert.NoError(t, err)
		assert.Equal(t, lawyerID, *tr.CurrentLawyerID)
	})

	t.Run("Lawyer Resolved From Live Assignment", func(t *testing.T) {
		c := &models.Case{ID: "c-live", ClientID: "client-1", CaseNumber: "N-live", CaseType: "civil",
			District: "central", Description: "d", PlaintiffName: "p", DefendantName: "d",
			Status: models.CaseStatusLawyerRequested}
		db.Create(c)
		db.Create(&models.Assignment{CaseID: c.ID, LawyerID: lawyerID, ClientID: c.ClientID,
			Status: models.AssignmentStatusAccepted})

		tr, err := ValidateCaseTransition(db, c, models.CaseStatusLawyerAssigned, nil)
		assert.NoError(t, err)
		assert.Equal(t, lawyerID, *tr.CurrentLawyerID)
	})

	t.Run("Missing Lawyer Assignment", func(t *testing.T) {
		c := &models.Case{ID: "c-missing", ClientID: "client-1", CaseNumber: "N-missing", CaseType: "civil",
			District: "central", Description: "d", PlaintiffName: "p", DefendantName: "d",
			Status: models.CaseStatusLawyerRequested}
		db.Create(c)

		_, err := ValidateCaseTransition(db, c, models.CaseStatusLawyerAssigned, nil)
		assert.ErrorIs(t, err, ErrMissingLawyerAssignment)
	})

	t.Run("Non-Lawyer-Bound Target Preserves Pointer", func(t *testing.T) {
		c := &models.Case{ID: "c-preserve", Status: models.CaseStatusHearingScheduled, CurrentLawyerID: &lawyerID}
		db.Create(&models.Hearing{CaseID: c.ID, District: "central", StartTime: "09:00", EndTime: "10:00",
			Status: models.HearingStatusScheduled})

		tr, err := ValidateCaseTransition(db, c, models.CaseStatusCompleted, nil)
		assert.NoError(t, err)
		assert.Equal(t, models.CaseStatusCompleted, tr.Status)
		assert.Equal(t, lawyerID, *tr.CurrentLawyerID)
	})

	t.Run("Hearing Target Demoted Without Hearing Record", func(t *testing.T) {
		c := &models.Case{ID: "c-demote", Status: models.CaseStatusSchedulingRequested, CurrentLawyerID: &lawyerID}
		tr, err := ValidateCaseTransition(db, c, models.CaseStatusHearingScheduled, nil)
		assert.NoError(t, err)
		assert.True(t, tr.Demoted)
		assert.Equal(t, models.CaseStatusLawyerAssigned, tr.Status)
		assert.Equal(t, lawyerID, *tr.CurrentLawyerID)
	})

	t.Run("Hearing Target Honored With Active Hearing", func(t *testing.T) {
		c := &models.Case{ID: "c-hearing", Status: models.CaseStatusSchedulingRequested, CurrentLawyerID: &lawyerID}
		db.Create(&models.Hearing{CaseID: c.ID, District: "central", StartTime: "09:00", EndTime: "10:00",
			Status: models.HearingStatusScheduled})

		tr, err := ValidateCaseTransition(db, c, models.CaseStatusHearingScheduled, nil)
		assert.NoError(t, err)
		assert.False(t, tr.Demoted)
		assert.Equal(t, models.CaseStatusHearingScheduled, tr.Status)
	})
}

func TestFindLiveAssignment(t *testing.T) {
	db := setupStateMachineTestDB()

	t.Run("None", func(t *testing.T) {
		live, err := FindLiveAssignment(db, "no-such-case")
		assert.NoError(t, err)
		assert.Nil(t, live)
	})

	t.Run("Terminal Records Ignored", func(t *testing.T) {
		db.Create(&models.Assignment{CaseID: "case-t", LawyerID: "l1", ClientID: "c1", Status: models.AssignmentStatusRejected})
		db.Create(&models.Assignment{CaseID: "case-t", LawyerID: "l2", ClientID: "c1", Status: models.AssignmentStatusWithdrawn})
		db.Create(&models.Assignment{CaseID: "case-t", LawyerID: "l3", ClientID: "c1", Status: models.AssignmentStatusActive})

		live, err := FindLiveAssignment(db, "case-t")
		assert.NoError(t, err)
		assert.NotNil(t, live)
		assert.Equal(t, "l3", live.LawyerID)
	})
}
