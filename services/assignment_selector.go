package services

import (
	"fmt"

	"case_flow_app_go/models"

	"gorm.io/gorm"
)

// SupersededReason is recorded on assignments displaced by auto-assignment.
const SupersededReason = "superseded by auto-assignment"

// caseTypeSpecializations maps a case type to the specializations that can
// handle it. Legacy and current type keys both map so old records keep working.
var caseTypeSpecializations = map[string][]string{
	"family":       {"Family Law"},
	"familyMatter": {"Family Law"}, // legacy key
	"civil":        {"Civil Litigation"},
	"civilDispute": {"Civil Litigation"}, // legacy key
	"smallClaims":  {"Civil Litigation"},
	"criminal":     {"Criminal Defense"},
	"labor":        {"Labor Law", "Employment Law"},
	"employment":   {"Labor Law", "Employment Law"},
	"commercial":   {"Commercial Law", "Corporate Law"},
	"business":     {"Commercial Law", "Corporate Law"}, // legacy key
	"property":     {"Property Law"},
	"realEstate":   {"Property Law"}, // legacy key
	"admin":        {"Administrative Law"},
	"administrative": {"Administrative Law"},
}

// SpecializationsForCaseType returns the acceptable specializations for a case
// type, or nil when the type is unmapped.
func SpecializationsForCaseType(caseType string) []string {
	return caseTypeSpecializations[caseType]
}

// SelectLawyerForCase picks the best available lawyer for a case type.
// Candidates matching the mapped specializations are preferred; if none is
// available the query falls back to any available lawyer. Ordering is rating
// first, earlier qualification year breaking ties.
func SelectLawyerForCase(db *gorm.DB, caseType string) (*models.User, error) {
	specs := SpecializationsForCaseType(caseType)

	if len(specs) > 0 {
		lawyer, err := findAvailableLawyer(db, specs)
		if err != nil {
			return nil, err
		}
		if lawyer != nil {
			return lawyer, nil
		}
	}

	// Fallback: any available lawyer
	lawyer, err := findAvailableLawyer(db, nil)
	if err != nil {
		return nil, err
	}
	if lawyer == nil {
		return nil, fmt.Errorf("%w: case type %q", ErrNoLawyerAvailable, caseType)
	}
	return lawyer, nil
}

func findAvailableLawyer(db *gorm.DB, specializations []string) (*models.User, error) {
	query := db.Where("role = ? AND is_active = ? AND is_available = ?", models.RoleLawyer, true, true)
	if len(specializations) > 0 {
		query = query.Where("specialization IN ?", specializations)
	}

	var lawyer models.User
	err := query.Order("rating DESC, qualified_year ASC").First(&lawyer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query lawyers: %w", err)
	}
	return &lawyer, nil
}

// SupersedeStaleAssignments rejects every pending or active assignment for the
// case that names a different lawyer than the auto-assignment winner.
// Auto-assignment always wins over an unanswered older request so automatic
// matching never blocks on one.
func SupersedeStaleAssignments(db *gorm.DB, caseID, keepLawyerID string) ([]models.Assignment, error) {
	var stale []models.Assignment
	err := db.Where("case_id = ? AND lawyer_id != ? AND status IN ?",
		caseID, keepLawyerID,
		[]models.AssignmentStatus{models.AssignmentStatusPending, models.AssignmentStatusActive}).
		Find(&stale).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stale assignments: %w", err)
	}

	reason := SupersededReason
	for i := range stale {
		a := &stale[i]
		from := a.Status
		a.Status = models.AssignmentStatusRejected
		a.RejectionReason = &reason
		appendStatusChange(a, from, a.Status, nil, &reason)

		if err := persistAssignment(db, a); err != nil {
			return nil, fmt.Errorf("failed to supersede assignment %s: %w", a.ID, err)
		}
	}
	return stale, nil
}
