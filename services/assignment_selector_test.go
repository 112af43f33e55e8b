package services

import (
	"testing"

	"case_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSelectorTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	db.AutoMigrate(&models.User{}, &models.Case{}, &models.Assignment{}, &models.AssignmentStatusChange{})
	return db
}

func createLawyer(db *gorm.DB, id, specialization string, rating float64, qualifiedYear int, available bool) {
	db.Create(&models.User{
		ID:             id,
		Name:           "Lawyer " + id,
		Email:          id + "@example.com",
		Password:       "x",
		Role:           models.RoleLawyer,
		IsActive:       true,
		Specialization: &specialization,
		Rating:         &rating,
		QualifiedYear:  &qualifiedYear,
		IsAvailable:    available,
	})
}

func TestSelectLawyerForCase(t *testing.T) {
	t.Run("Highest Rating Wins", func(t *testing.T) {
		db := setupSelectorTestDB()
		createLawyer(db, "l1", "Family Law", 4.2, 2010, true)
		createLawyer(db, "l2", "Family Law", 4.8, 2018, true)

		lawyer, err := SelectLawyerForCase(db, "family")
		assert.NoError(t, err)
		assert.Equal(t, "l2", lawyer.ID)
	})

	t.Run("Earlier Qualification Breaks Rating Ties", func(t *testing.T) {
		db := setupSelectorTestDB()
		createLawyer(db, "l1", "Civil Litigation", 4.5, 2015, true)
		createLawyer(db, "l2", "Civil Litigation", 4.5, 2005, true)

		lawyer, err := SelectLawyerForCase(db, "civil")
		assert.NoError(t, err)
		assert.Equal(t, "l2", lawyer.ID)
	})

	t.Run("Unavailable Lawyers Skipped", func(t *testing.T) {
		db := setupSelectorTestDB()
		createLawyer(db, "l1", "Criminal Defense", 5.0, 2000, false)
		createLawyer(db, "l2", "Criminal Defense", 3.0, 2020, true)

		lawyer, err := SelectLawyerForCase(db, "criminal")
		assert.NoError(t, err)
		assert.Equal(t, "l2", lawyer.ID)
	})

	t.Run("Falls Back To Any Available Lawyer", func(t *testing.T) {
		db := setupSelectorTestDB()
		createLawyer(db, "l1", "Property Law", 4.0, 2012, true)

		lawyer, err := SelectLawyerForCase(db, "criminal")
		assert.NoError(t, err)
		assert.Equal(t, "l1", lawyer.ID)
	})

	t.Run("Legacy Case Type Keys Still Map", func(t *testing.T) {
		db := setupSelectorTestDB()
		createLawyer(db, "general", "Property Law", 3.0, 2015, true)
		createLawyer(db, "family", "Family Law", 2.0, 2015, true)

		lawyer, err := SelectLawyerForCase(db, "familyMatter")
		assert.NoError(t, err)
		assert.Equal(t, "family", lawyer.ID)
	})

	t.Run("No Lawyer Available", func(t *testing.T) {
		db := setupSelectorTestDB()
		_, err := SelectLawyerForCase(db, "family")
		assert.ErrorIs(t, err, ErrNoLawyerAvailable)
	})
}

func TestSupersedeStaleAssignments(t *testing.T) {
	db := setupSelectorTestDB()
	caseID := "case-1"

	db.Create(&models.Assignment{ID: "a-pending", CaseID: caseID, LawyerID: "l1", ClientID: "c1",
		Status: models.AssignmentStatusPending})
	db.Create(&models.Assignment{ID: "a-active", CaseID: caseID, LawyerID: "l2", ClientID: "c1",
		Status: models.AssignmentStatusActive})
	db.Create(&models.Assignment{ID: "a-keep", CaseID: caseID, LawyerID: "winner", ClientID: "c1",
		Status: models.AssignmentStatusPending})
	db.Create(&models.Assignment{ID: "a-done", CaseID: caseID, LawyerID: "l3", ClientID: "c1",
		Status: models.AssignmentStatusCompleted})

	superseded, err := SupersedeStaleAssignments(db, caseID, "winner")
	assert.NoError(t, err)
	assert.Len(t, superseded, 2)

	var rejected []models.Assignment
	db.Where("case_id = ? AND status = ?", caseID, models.AssignmentStatusRejected).Find(&rejected)
	assert.Len(t, rejected, 2)
	for _, a := range rejected {
		assert.Equal(t, SupersededReason, *a.RejectionReason)
	}

	// Winner and completed records untouched
	var keep models.Assignment
	db.First(&keep, "id = ?", "a-keep")
	assert.Equal(t, models.AssignmentStatusPending, keep.Status)
	var done models.Assignment
	db.First(&done, "id = ?", "a-done")
	assert.Equal(t, models.AssignmentStatusCompleted, done.Status)

	// Audit trail rows persisted with the supersession reason
	var history []models.AssignmentStatusChange
	db.Where("assignment_id = ?", "a-pending").Find(&history)
	assert.Len(t, history, 1)
	assert.Equal(t, SupersededReason, *history[0].Reason)

	// Second run is a no-op
	again, err := SupersedeStaleAssignments(db, caseID, "winner")
	assert.NoError(t, err)
	assert.Empty(t, again)
}
