package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"case_flow_app_go/models"

	"gorm.io/gorm"
)

// Repair action names reported by the reconciler.
const (
	RepairSynthesizedAssignment = "synthesized_assignment"
	RepairBoundLawyerPointer    = "bound_lawyer_pointer"
	RepairForcedAcceptance      = "forced_acceptance"
	RepairPromotedToActive      = "promoted_to_active"
	RepairDeletedOrphan         = "deleted_orphan"
	RepairUnrepairable          = "unrepairable"
)

// RepairAction is one repair performed (or found impossible) during a sweep.
type RepairAction struct {
	CaseID       string `json:"case_id,omitempty"`
	AssignmentID string `json:"assignment_id,omitempty"`
	Action       string `json:"action"`
	Detail       string `json:"detail"`
}

// RepairReport is the structured, auditable record of a reconciliation sweep.
// The reconciler never repairs silently.
type RepairReport struct {
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	CasesScanned int            `json:"cases_scanned"`
	Actions      []RepairAction `json:"actions"`
}

// Empty reports whether the sweep found nothing to repair.
func (r *RepairReport) Empty() bool {
	return len(r.Actions) == 0
}

func (r *RepairReport) add(action RepairAction) {
	r.Actions = append(r.Actions, action)
}

// Reconciler detects and repairs divergence between a case's denormalized
// lawyer pointer and the authoritative assignment record. Every repair is
// re-derivable from current data, so a sweep racing live traffic either
// no-ops on re-run or is harmlessly overwritten by a legitimate transition.
type Reconciler struct {
	DB *gorm.DB
}

// RunOnce sweeps every case whose status requires a bound lawyer, then cleans
// up orphaned assignments. Repairs are committed per case; cancelling the
// context between cases never leaves a single case half-repaired.
func (rc *Reconciler) RunOnce(ctx context.Context) (*RepairReport, error) {
	report := &RepairReport{StartedAt: time.Now().UTC()}
	log.Println("Starting consistency reconciliation sweep...")

	var lawyerBound []models.CaseStatus
	for _, s := range models.AllCaseStatuses {
		if models.IsLawyerBoundStatus(s) {
			lawyerBound = append(lawyerBound, s)
		}
	}

	var cases []models.Case
	if err := rc.DB.Where("status IN ?", lawyerBound).Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to load lawyer-bound cases: %w", err)
	}

	for i := range cases {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now().UTC()
			log.Printf("Reconciliation sweep cancelled after %d of %d cases", i, len(cases))
			return report, err
		}
		report.CasesScanned++
		if err := rc.repairCase(&cases[i], report); err != nil {
			log.Printf("[WARNING] Failed to repair case %s: %v", cases[i].ID, err)
		}
	}

	if err := rc.deleteOrphans(report); err != nil {
		log.Printf("[WARNING] Orphan cleanup failed: %v", err)
	}

	report.FinishedAt = time.Now().UTC()
	log.Printf("Reconciliation sweep completed: %d cases scanned, %d repairs", report.CasesScanned, len(report.Actions))
	return report, nil
}

// CheckCase repairs a single case on demand, used when a controller or the
// orchestrator detects an anomaly directly.
func (rc *Reconciler) CheckCase(caseID string) (*RepairReport, error) {
	report := &RepairReport{StartedAt: time.Now().UTC()}

	var c models.Case
	if err := rc.DB.First(&c, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	report.CasesScanned = 1
	if models.IsLawyerBoundStatus(c.Status) {
		if err := rc.repairCase(&c, report); err != nil {
			return report, err
		}
	}
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

// repairCase applies the pointer/assignment repairs for one lawyer-bound
// case. It never invents a transition the case state machine would reject;
// only the pointer and assignment side of an already-valid status is filled in.
func (rc *Reconciler) repairCase(c *models.Case, report *RepairReport) error {
	if c.CurrentLawyerID != nil && *c.CurrentLawyerID != "" {
		return rc.repairMissingPaperTrail(c, report)
	}
	return rc.repairMissingPointer(c, report)
}

// repairMissingPaperTrail handles a lawyer pointer with no assignment record
// behind it: a synthetic active assignment is backfilled from the case's
// current state.
func (rc *Reconciler) repairMissingPaperTrail(c *models.Case, report *RepairReport) error {
	lawyerID := *c.CurrentLawyerID

	var count int64
	err := rc.DB.Model(&models.Assignment{}).
		Where("case_id = ? AND lawyer_id = ? AND status IN ?", c.ID, lawyerID, []models.AssignmentStatus{
			models.AssignmentStatusAccepted,
			models.AssignmentStatusActive,
			models.AssignmentStatusCompleted,
		}).Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to query assignments: %w", err)
	}
	if count > 0 {
		return rc.promoteLaggingAssignment(c, report)
	}

	backfill := c.CreatedAt.UTC()
	if c.StatusChangedAt != nil {
		backfill = c.StatusChangedAt.UTC()
	}
	reason := "reconciler: synthesized assignment for lawyer pointer without paper trail"
	synthetic := &models.Assignment{
		CaseID:         c.ID,
		LawyerID:       lawyerID,
		ClientID:       c.ClientID,
		AssignmentType: models.AssignmentTypeAdminAssigned,
		Status:         models.AssignmentStatusActive,
		AssignedAt:     backfill,
		AcceptedAt:     &backfill,
		ActivatedAt:    &backfill,
		StatusHistory: []models.AssignmentStatusChange{
			{
				FromStatus: models.AssignmentStatusPending,
				ToStatus:   models.AssignmentStatusActive,
				ChangedAt:  time.Now().UTC(),
				Reason:     &reason,
			},
		},
	}
	if err := rc.DB.Create(synthetic).Error; err != nil {
		return fmt.Errorf("failed to create synthetic assignment: %w", err)
	}

	report.add(RepairAction{
		CaseID:       c.ID,
		AssignmentID: synthetic.ID,
		Action:       RepairSynthesizedAssignment,
		Detail:       fmt.Sprintf("case %s pointed at lawyer %s with no assignment record", c.CaseNumber, lawyerID),
	})
	return nil
}

// repairMissingPointer handles a lawyer-bound case with no pointer set: the
// live assignment, if any, is bound. A lawyer_assigned case with no assignment
// at all gets the last-resort forced acceptance of whatever record exists.
func (rc *Reconciler) repairMissingPointer(c *models.Case, report *RepairReport) error {
	live, err := FindLiveAssignment(rc.DB, c.ID)
	if err != nil {
		return err
	}
	if live != nil {
		if err := rc.bindPointer(c, live.LawyerID); err != nil {
			return err
		}
		report.add(RepairAction{
			CaseID:       c.ID,
			AssignmentID: live.ID,
			Action:       RepairBoundLawyerPointer,
			Detail:       fmt.Sprintf("bound lawyer %s from live assignment", live.LawyerID),
		})
		return rc.promoteLaggingAssignment(c, report)
	}

	if c.Status != models.CaseStatusLawyerAssigned {
		report.add(RepairAction{
			CaseID: c.ID,
			Action: RepairUnrepairable,
			Detail: fmt.Sprintf("case %s is %s with no pointer and no live assignment", c.CaseNumber, c.Status),
		})
		return nil
	}

	// Last resort for data that should never have reached this state: force
	// whatever assignment record exists into accepted and bind it.
	var any models.Assignment
	err = rc.DB.Where("case_id = ?", c.ID).Order("assigned_at DESC").First(&any).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			report.add(RepairAction{
				CaseID: c.ID,
				Action: RepairUnrepairable,
				Detail: fmt.Sprintf("case %s is lawyer_assigned with no assignment records at all", c.CaseNumber),
			})
			return nil
		}
		return fmt.Errorf("failed to query assignments: %w", err)
	}

	now := time.Now().UTC()
	reason := "reconciler: forced acceptance for lawyer_assigned case with no live assignment"
	from := any.Status
	any.Status = models.AssignmentStatusAccepted
	if any.AcceptedAt == nil {
		any.AcceptedAt = &now
	}
	appendStatusChange(&any, from, any.Status, nil, &reason)
	if err := persistAssignment(rc.DB, &any); err != nil {
		return err
	}
	if err := rc.bindPointer(c, any.LawyerID); err != nil {
		return err
	}

	report.add(RepairAction{
		CaseID:       c.ID,
		AssignmentID: any.ID,
		Action:       RepairForcedAcceptance,
		Detail:       fmt.Sprintf("forced assignment from %s to accepted and bound lawyer %s", from, any.LawyerID),
	})
	return nil
}

// promoteLaggingAssignment promotes an accepted assignment to active when the
// case has already progressed past lawyer_assigned.
func (rc *Reconciler) promoteLaggingAssignment(c *models.Case, report *RepairReport) error {
	if c.Status == models.CaseStatusLawyerAssigned {
		return nil
	}

	var accepted models.Assignment
	err := rc.DB.Where("case_id = ? AND status = ?", c.ID, models.AssignmentStatusAccepted).
		Order("assigned_at DESC").First(&accepted).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to query accepted assignment: %w", err)
	}

	if err := ActivateAssignment(&accepted); err != nil {
		return err
	}
	if err := persistAssignment(rc.DB, &accepted); err != nil {
		return err
	}

	report.add(RepairAction{
		CaseID:       c.ID,
		AssignmentID: accepted.ID,
		Action:       RepairPromotedToActive,
		Detail:       fmt.Sprintf("assignment lagged at accepted while case is %s", c.Status),
	})
	return nil
}

// bindPointer sets the case's lawyer pointer directly, bumping the version so
// optimistic writers racing the repair see the change.
func (rc *Reconciler) bindPointer(c *models.Case, lawyerID string) error {
	res := rc.DB.Model(&models.Case{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]interface{}{
			"current_lawyer_id": lawyerID,
			"version":           c.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to bind lawyer pointer on case %s: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		// A legitimate transition won the race; the repair is re-derivable on
		// the next sweep if still needed.
		return nil
	}
	c.Version++
	c.CurrentLawyerID = &lawyerID
	return nil
}

// deleteOrphans removes assignments whose case no longer exists. Orphans are
// never surfaced to interactive callers.
func (rc *Reconciler) deleteOrphans(report *RepairReport) error {
	var orphans []models.Assignment
	err := rc.DB.
		Where("case_id NOT IN (?)", rc.DB.Model(&models.Case{}).Select("id")).
		Find(&orphans).Error
	if err != nil {
		return fmt.Errorf("failed to query orphaned assignments: %w", err)
	}

	for i := range orphans {
		a := &orphans[i]
		if err := rc.DB.Unscoped().Where("assignment_id = ?", a.ID).Delete(&models.AssignmentStatusChange{}).Error; err != nil {
			return fmt.Errorf("failed to delete history of orphan %s: %w", a.ID, err)
		}
		if err := rc.DB.Unscoped().Delete(a).Error; err != nil {
			return fmt.Errorf("failed to delete orphan %s: %w", a.ID, err)
		}
		report.add(RepairAction{
			AssignmentID: a.ID,
			CaseID:       a.CaseID,
			Action:       RepairDeletedOrphan,
			Detail:       fmt.Sprintf("assignment referenced missing case %s", a.CaseID),
		})
	}
	return nil
}
