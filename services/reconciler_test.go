package services

import (
	"context"
	"testing"

	"case_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupReconcilerTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	db.AutoMigrate(&models.User{}, &models.Case{}, &models.Assignment{},
		&models.AssignmentStatusChange{}, &models.Hearing{})
	return db
}

func reconcilerCase(db *gorm.DB, id string, status models.CaseStatus, lawyerID *string) *models.Case {
	c := &models.Case{
		ID: id, ClientID: "client-1", CaseNumber: "N-" + id, CaseType: "family",
		District: "central", Description: "d", PlaintiffName: "p", DefendantName: "d",
		Status: status, CurrentLawyerID: lawyerID,
	}
	db.Create(c)
	return c
}

func TestReconcilerSynthesizesMissingPaperTrail(t *testing.T) {
	db := setupReconcilerTestDB()
	rc := &Reconciler{DB: db}
	lawyerID := "lawyer-1"
	reconcilerCase(db, "c-1", models.CaseStatusFilingRequested, &lawyerID)

	report, err := rc.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.CasesScanned)
	assert.Len(t, report.Actions, 1)
	assert.Equal(t, RepairSynthesizedAssignment, report.Actions[0].Action)

	var a models.Assignment
	assert.NoError(t, db.First(&a, "case_id = ?", "c-1").Error)
	assert.Equal(t, models.AssignmentStatusActive, a.Status)
	assert.Equal(t, lawyerID, a.LawyerID)
	assert.Equal(t, models.AssignmentTypeAdminAssigned, a.AssignmentType)
	assert.NotNil(t, a.AcceptedAt)
	assert.NotNil(t, a.ActivatedAt)

	// The synthetic record carries an explanatory audit entry
	var history []models.AssignmentStatusChange
	db.Where("assignment_id = ?", a.ID).Find(&history)
	assert.Len(t, history, 1)
	assert.Contains(t, *history[0].Reason, "synthesized")

	// Second sweep finds nothing to repair
	again, err := rc.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.True(t, again.Empty())
}

func TestReconcilerBindsMissingPointer(t *testing.T) {
	db := setupReconcilerTestDB()
	rc := &Reconciler{DB: db}
	c := reconcilerCase(db, "c-2", models.CaseStatusUnderReview, nil)
	db.Create(&models.Assignment{CaseID: c.ID, LawyerID: "lawyer-2", ClientID: "client-1",
		Status: models.AssignmentStatusAccepted})

	report, err := rc.RunOnce(context.Background())
	assert.NoError(t, err)

	actions := make([]string, 0, len(report.Actions))
	for _, a := range report.Actions {
		actions = append(actions, a.Action)
	}
	assert.Contains(t, actions, RepairBoundLawyerPointer)
	// The assignment also lagged behind the case's progress
	assert.Contains(t, actions, RepairPromotedToActive)

	var reloaded models.Case
	db.First(&reloaded, "id = ?", c.ID)
	assert.Equal(t, "lawyer-2", *reloaded.CurrentLawyerID)

	var a models.Assignment
	db.First(&a, "case_id = ?", c.ID)
	assert.Equal(t, models.AssignmentStatusActive, a.Status)

	again, err := rc.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.True(t, again.Empty())
}

func TestReconcilerForcedAcceptance(t *testing.T) {
	db := setupReconcilerTestDB()
	rc := &Reconciler{DB: db}
	c := reconcilerCase(db, "c-3", models.CaseStatusLawyerAssigned, nil)
	db.Create(&models.Assignment{CaseID: c.ID, LawyerID: "lawyer-3", ClientID: "client-1",
		Status: models.AssignmentStatusWithdrawn})

	report, err := rc.CheckCase(c.ID)
	assert.NoError(t, err)
	assert.Len(t, report.Actions, 1)
	assert.Equal(t, RepairForcedAcceptance, report.Actions[0].Action)

	var a models.Assignment
	db.First(&a, "case_id = ?", c.ID)
	assert.Equal(t, models.AssignmentStatusAccepted, a.Status)
	assert.NotNil(t, a.AcceptedAt)

	var reloaded models.Case
	db.First(&reloaded, "id = ?", c.ID)
	assert.Equal(t, "lawyer-3", *reloaded.CurrentLawyerID)

	again, err := rc.CheckCase(c.ID)
	assert.NoError(t, err)
	assert.True(t, again.Empty())
}

func TestReconcilerUnrepairable(t *testing.T) {
	db := setupReconcilerTestDB()
	rc := &Reconciler{DB: db}

	t.Run("Past Lawyer Assigned With Nothing To Bind", func(t *testing.T) {
		c := reconcilerCase(db, "c-4", models.CaseStatusFiled, nil)

		report, err := rc.CheckCase(c.ID)
		assert.NoError(t, err)
		assert.Len(t, report.Actions, 1)
		assert.Equal(t, RepairUnrepairable, report.Actions[0].Action)

		// Forced acceptance is reserved for lawyer_assigned; the case is left alone
		var reloaded models.Case
		db.First(&reloaded, "id = ?", c.ID)
		assert.Equal(t, models.CaseStatusFiled, reloaded.Status)
		assert.Nil(t, reloaded.CurrentLawyerID)
	})

	t.Run("Lawyer Assigned With No Records At All", func(t *testing.T) {
		c := reconcilerCase(db, "c-5", models.CaseStatusLawyerAssigned, nil)

		report, err := rc.CheckCase(c.ID)
		assert.NoError(t, err)
		assert.Len(t, report.Actions, 1)
		assert.Equal(t, RepairUnrepairable, report.Actions[0].Action)
	})
}

func TestReconcilerDeletesOrphans(t *testing.T) {
	db := setupReconcilerTestDB()
	rc := &Reconciler{DB: db}

	orphan := &models.Assignment{CaseID: "gone", LawyerID: "lawyer-1", ClientID: "client-1",
		Status: models.AssignmentStatusPending}
	db.Create(orphan)
	db.Create(&models.AssignmentStatusChange{AssignmentID: orphan.ID,
		FromStatus: models.AssignmentStatusPending, ToStatus: models.AssignmentStatusPending})

	// A healthy assignment with a real case survives
	lawyerID := "lawyer-2"
	kept := reconcilerCase(db, "c-6", models.CaseStatusLawyerAssigned, &lawyerID)
	db.Create(&models.Assignment{CaseID: kept.ID, LawyerID: lawyerID, ClientID: "client-1",
		Status: models.AssignmentStatusAccepted})

	report, err := rc.RunOnce(context.Background())
	assert.NoError(t, err)

	var deleted int64
	db.Unscoped().Model(&models.Assignment{}).Where("id = ?", orphan.ID).Count(&deleted)
	assert.Equal(t, int64(0), deleted)

	var history int64
	db.Unscoped().Model(&models.AssignmentStatusChange{}).Where("assignment_id = ?", orphan.ID).Count(&history)
	assert.Equal(t, int64(0), history)

	var survivors int64
	db.Model(&models.Assignment{}).Where("case_id = ?", kept.ID).Count(&survivors)
	assert.Equal(t, int64(1), survivors)

	found := false
	for _, a := range report.Actions {
		if a.Action == RepairDeletedOrphan && a.AssignmentID == orphan.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReconcilerHealthyCasesUntouched(t *testing.T) {
	db := setupReconcilerTestDB()
	rc := &Reconciler{DB: db}
	lawyerID := "lawyer-1"
	c := reconcilerCase(db, "c-7", models.CaseStatusFiled, &lawyerID)
	db.Create(&models.Assignment{CaseID: c.ID, LawyerID: lawyerID, ClientID: "client-1",
		Status: models.AssignmentStatusActive})

	report, err := rc.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.CasesScanned)
	assert.True(t, report.Empty())
}

func TestReconcilerRespectsCancellation(t *testing.T) {
	db := setupReconcilerTestDB()
	rc := &Reconciler{DB: db}
	lawyerID := "lawyer-1"
	reconcilerCase(db, "c-8", models.CaseStatusFilingRequested, &lawyerID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := rc.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.CasesScanned)
}
