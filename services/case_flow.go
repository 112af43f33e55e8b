package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"case_flow_app_go/config"
	"case_flow_app_go/models"

	"gorm.io/gorm"
)

// maxOptimisticRetries bounds internal retries on concurrent-write conflicts
// before ErrOptimisticConflict is surfaced to the caller.
const maxOptimisticRetries = 3

// ErrSlotUnavailable means the scheduling collaborator reported the requested
// hearing slot as taken.
var ErrSlotUnavailable = errors.New("requested hearing slot is not free")

// CaseFlow sequences reads and writes across the case and assignment stores.
// It is the only component that mutates both. Every operation writes the
// assignment record first (it is the source of truth for who the lawyer is),
// then the case record, and triggers reconciliation when the second write
// fails or disagrees.
type CaseFlow struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Slots    SlotChecker
	Notifier *NotificationService
}

// NewCaseFlow builds an orchestrator with the default DB-backed slot checker.
func NewCaseFlow(db *gorm.DB, cfg *config.Config) *CaseFlow {
	return &CaseFlow{
		DB:       db,
		Cfg:      cfg,
		Slots:    &DBSlotChecker{DB: db},
		Notifier: NewNotificationService(db),
	}
}

// CreateCaseInput carries the client-supplied fields for a new case.
type CreateCaseInput struct {
	CaseType          string
	District          string
	Description       string
	PlaintiffName     string
	PlaintiffIDNumber string
	DefendantName     string
	DefendantIDNumber *string
	MonetaryValue     *float64
	ReliefSought      *string
}

// CreateCase files a new case for a client in pending status.
func (cf *CaseFlow) CreateCase(clientID string, input CreateCaseInput) (*models.Case, error) {
	caseNumber, err := EnsureUniqueCaseNumber(cf.DB, cf.Cfg.CaseNumberPrefix)
	if err != nil {
		return nil, err
	}

	c := &models.Case{
		ClientID:          clientID,
		CaseNumber:        caseNumber,
		CaseType:          input.CaseType,
		District:          input.District,
		Description:       SanitizeText(input.Description),
		PlaintiffName:     SanitizeText(input.PlaintiffName),
		PlaintiffIDNumber: input.PlaintiffIDNumber,
		DefendantName:     SanitizeText(input.DefendantName),
		DefendantIDNumber: input.DefendantIDNumber,
		MonetaryValue:     input.MonetaryValue,
		ReliefSought:      SanitizeTextPtr(input.ReliefSought),
		Status:            models.CaseStatusPending,
	}
	if err := cf.DB.Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}
	return c, nil
}

// DeleteCase soft-deletes a case. Only the filing client may delete, and only
// before the case has been filed with a court.
func (cf *CaseFlow) DeleteCase(caseID, clientID string) error {
	c, err := cf.loadCase(caseID)
	if err != nil {
		return err
	}
	if c.ClientID != clientID {
		return fmt.Errorf("%w: only the filing client may delete a case", ErrUnauthorized)
	}
	if c.CourtReference != nil || c.IsTerminal() {
		return fmt.Errorf("%w: case %s can no longer be deleted", ErrInvalidTransition, c.ID)
	}
	return cf.DB.Delete(c).Error
}

// RequestAssignment creates a pending assignment addressed to a lawyer and
// moves the case to lawyer_requested. A pending request is not yet a
// commitment, so the case's lawyer pointer stays null. Fails with
// ErrConflictingAssignment when any outstanding assignment already exists.
func (cf *CaseFlow) RequestAssignment(caseID, lawyerID, clientID string, message *string, assignmentType models.AssignmentType) (*models.Case, *models.Assignment, error) {
	c, err := cf.loadCase(caseID)
	if err != nil {
		return nil, nil, err
	}
	if c.Status != models.CaseStatusVerified && c.Status != models.CaseStatusLawyerRequested {
		return nil, nil, fmt.Errorf("%w: cannot request assignment while case is %s", ErrInvalidTransition, c.Status)
	}

	outstanding, err := cf.countOutstandingAssignments(caseID)
	if err != nil {
		return nil, nil, err
	}
	if outstanding > 0 {
		return nil, nil, fmt.Errorf("%w: case %s", ErrConflictingAssignment, caseID)
	}

	var lawyer models.User
	if err := cf.DB.First(&lawyer, "id = ? AND role = ? AND is_active = ?", lawyerID, models.RoleLawyer, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: lawyer %s", ErrNoLawyerAvailable, lawyerID)
		}
		return nil, nil, fmt.Errorf("failed to load lawyer: %w", err)
	}

	// Assignment write first: it is the authoritative record.
	assignment := &models.Assignment{
		CaseID:         caseID,
		LawyerID:       lawyerID,
		ClientID:       clientID,
		AssignmentType: assignmentType,
		Status:         models.AssignmentStatusPending,
		RequestMessage: SanitizeTextPtr(message),
	}
	if err := cf.DB.Create(assignment).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	if c.Status == models.CaseStatusLawyerRequested {
		// Already requested earlier; the new pending record is the whole write.
		cf.notifyAssignment(assignment, models.NotificationTypeAssignmentUpdate,
			"New case assignment request", "You have been requested to take on a case.")
		return c, assignment, nil
	}

	tr, err := ValidateCaseTransition(cf.DB, c, models.CaseStatusLawyerRequested, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := cf.persistCaseTransition(c, tr, &clientID); err != nil {
		if errors.Is(err, ErrOptimisticConflict) {
			// Lost a race for the same case: a concurrent request won the case
			// write. Compensate by rejecting the assignment we just created.
			reason := "conflicting assignment request"
			from := assignment.Status
			assignment.Status = models.AssignmentStatusRejected
			assignment.RejectionReason = &reason
			appendStatusChange(assignment, from, assignment.Status, nil, &reason)
			if perr := persistAssignment(cf.DB, assignment); perr != nil {
				log.Printf("[WARNING] Failed to compensate losing assignment %s: %v", assignment.ID, perr)
			}
			return nil, nil, fmt.Errorf("%w: case %s", ErrConflictingAssignment, caseID)
		}
		return nil, nil, err
	}

	cf.notifyAssignment(assignment, models.NotificationTypeAssignmentUpdate,
		"New case assignment request", "You have been requested to take on a case.")
	return c, assignment, nil
}

// AutoAssign selects the best available lawyer for the case type and creates
// an auto assignment request, superseding any stale pending or active
// assignment naming a different lawyer.
func (cf *CaseFlow) AutoAssign(caseID, clientID string) (*models.Case, *models.Assignment, error) {
	c, err := cf.loadCase(caseID)
	if err != nil {
		return nil, nil, err
	}
	if c.Status != models.CaseStatusVerified && c.Status != models.CaseStatusLawyerRequested {
		return nil, nil, fmt.Errorf("%w: cannot auto-assign while case is %s", ErrInvalidTransition, c.Status)
	}

	lawyer, err := SelectLawyerForCase(cf.DB, c.CaseType)
	if err != nil {
		return nil, nil, err
	}

	superseded, err := SupersedeStaleAssignments(cf.DB, caseID, lawyer.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(superseded) > 0 {
		log.Printf("[INFO] Auto-assignment superseded %d stale assignment(s) on case %s", len(superseded), caseID)
	}

	// A live accepted assignment is a real engagement and is never superseded.
	live, err := FindLiveAssignment(cf.DB, caseID)
	if err != nil {
		return nil, nil, err
	}
	if live != nil {
		return nil, nil, fmt.Errorf("%w: case %s has a live assignment", ErrConflictingAssignment, caseID)
	}

	// Idempotent when the winner is already pending.
	var existing models.Assignment
	err = cf.DB.Where("case_id = ? AND lawyer_id = ? AND status = ?",
		caseID, lawyer.ID, models.AssignmentStatusPending).First(&existing).Error
	if err == nil {
		return c, &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("failed to query pending assignment: %w", err)
	}

	return cf.RequestAssignment(caseID, lawyer.ID, clientID, nil, models.AssignmentTypeAuto)
}

// AcceptAssignment records the lawyer's acceptance and binds the lawyer to the
// case. This is the only point at which the case's lawyer pointer first
// becomes non-null.
func (cf *CaseFlow) AcceptAssignment(assignmentID, lawyerID string, note *string) (*models.Case, *models.Assignment, error) {
	assignment, err := cf.loadAssignment(assignmentID)
	if err != nil {
		return nil, nil, err
	}
	c, err := cf.loadCase(assignment.CaseID)
	if err != nil {
		return nil, assignment, err
	}
	// The case must still be able to take a lawyer before the assignment
	// write commits; otherwise the accepted record could never be matched
	// by a case transition. Non-pending assignments fall through so the
	// state machine reports their status instead.
	if assignment.Status == models.AssignmentStatusPending &&
		!CanTransitionCase(c.Status, models.CaseStatusLawyerAssigned) {
		return nil, assignment, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, models.CaseStatusLawyerAssigned)
	}

	assignment, err = cf.writeAssignment(assignmentID, func(a *models.Assignment) error {
		return AcceptAssignment(a, lawyerID, SanitizeTextPtr(note))
	})
	if err != nil {
		return nil, nil, err
	}

	c, err = cf.writeCaseTransition(assignment.CaseID, models.CaseStatusLawyerAssigned, &assignment.LawyerID, &lawyerID)
	if err != nil {
		// The accepted assignment is committed; the case side must catch up.
		cf.repairAfterDivergence(assignment.CaseID)
		return nil, assignment, err
	}

	cf.notifyCase(c, models.NotificationTypeCaseUpdate,
		"Lawyer assigned", "Your assignment request was accepted.")
	return c, assignment, nil
}

// RejectAssignment records the lawyer's rejection and rolls the case back to
// verified with no bound lawyer.
func (cf *CaseFlow) RejectAssignment(assignmentID, lawyerID string, reason *string) (*models.Case, *models.Assignment, error) {
	assignment, err := cf.writeAssignment(assignmentID, func(a *models.Assignment) error {
		return RejectAssignment(a, lawyerID, SanitizeTextPtr(reason))
	})
	if err != nil {
		return nil, nil, err
	}

	// Rollback write, not a forward transition: lawyer_requested has no edge
	// back to verified, but an unanswered request being declined undoes the
	// request rather than advancing the case.
	var c *models.Case
	for attempt := 0; attempt < maxOptimisticRetries; attempt++ {
		c, err = cf.loadCase(assignment.CaseID)
		if err != nil {
			return nil, assignment, err
		}
		if c.Status != models.CaseStatusLawyerRequested {
			break // already moved on; nothing to roll back
		}
		err = cf.persistCase(c, map[string]interface{}{
			"status":            models.CaseStatusVerified,
			"current_lawyer_id": nil,
			"status_changed_at": time.Now().UTC(),
			"status_changed_by": lawyerID,
		})
		if errors.Is(err, ErrOptimisticConflict) {
			continue
		}
		if err != nil {
			cf.repairAfterDivergence(assignment.CaseID)
			return nil, assignment, err
		}
		c.Status = models.CaseStatusVerified
		c.CurrentLawyerID = nil
		break
	}

	cf.notifyCase(c, models.NotificationTypeCaseUpdate,
		"Assignment rejected", "The requested lawyer declined the case.")
	return c, assignment, nil
}

// WithdrawAssignment lets the engaged lawyer step away before filing work has
// begun. The case rolls back to verified with no bound lawyer so the client
// can request someone else. After filing the engagement cannot be unwound this
// way; the case has to be cancelled or reassigned by an admin.
func (cf *CaseFlow) WithdrawAssignment(assignmentID, lawyerID string, reason *string) (*models.Case, *models.Assignment, error) {
	assignment, err := cf.loadAssignment(assignmentID)
	if err != nil {
		return nil, nil, err
	}

	c, err := cf.loadCase(assignment.CaseID)
	if err != nil {
		return nil, assignment, err
	}
	switch c.Status {
	case models.CaseStatusLawyerRequested, models.CaseStatusLawyerAssigned:
		// allowed
	default:
		return nil, assignment, fmt.Errorf("%w: cannot withdraw while case is %s", ErrInvalidTransition, c.Status)
	}

	assignment, err = cf.writeAssignment(assignmentID, func(a *models.Assignment) error {
		if a.LawyerID != lawyerID {
			return fmt.Errorf("%w: assignment belongs to another lawyer", ErrNotAddressee)
		}
		return WithdrawAssignment(a, SanitizeTextPtr(reason))
	})
	if err != nil {
		return nil, nil, err
	}

	// Same rollback write as a rejection: undo the engagement rather than
	// advance the case.
	for attempt := 0; attempt < maxOptimisticRetries; attempt++ {
		c, err = cf.loadCase(assignment.CaseID)
		if err != nil {
			return nil, assignment, err
		}
		if c.Status != models.CaseStatusLawyerRequested && c.Status != models.CaseStatusLawyerAssigned {
			break
		}
		err = cf.persistCase(c, map[string]interface{}{
			"status":            models.CaseStatusVerified,
			"current_lawyer_id": nil,
			"status_changed_at": time.Now().UTC(),
			"status_changed_by": lawyerID,
		})
		if errors.Is(err, ErrOptimisticConflict) {
			continue
		}
		if err != nil {
			cf.repairAfterDivergence(assignment.CaseID)
			return nil, assignment, err
		}
		c.Status = models.CaseStatusVerified
		c.CurrentLawyerID = nil
		break
	}

	cf.notifyCase(c, models.NotificationTypeCaseUpdate,
		"Lawyer withdrew", "Your lawyer has withdrawn from the case.")
	return c, assignment, nil
}

// RequestFiling signals that real legal work has begun: the client asks the
// bound lawyer to file the case with a court. The live assignment is activated
// if it was still only accepted.
func (cf *CaseFlow) RequestFiling(caseID, clientID string, message *string) (*models.Case, error) {
	c, err := cf.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case models.CaseStatusLawyerAssigned, models.CaseStatusFilingRequested,
		models.CaseStatusUnderReview, models.CaseStatusApproved:
		// allowed
	default:
		return nil, fmt.Errorf("%w: cannot request filing while case is %s", ErrInvalidTransition, c.Status)
	}
	if c.ClientID != clientID {
		return nil, fmt.Errorf("%w: only the filing client may request filing", ErrUnauthorized)
	}

	live, err := cf.requireLiveAssignment(caseID)
	if err != nil {
		return nil, err
	}

	if live.Status == models.AssignmentStatusAccepted {
		if _, err := cf.writeAssignment(live.ID, func(a *models.Assignment) error {
			return ActivateAssignment(a)
		}); err != nil {
			return nil, err
		}
	}

	if c.Status == models.CaseStatusLawyerAssigned {
		c, err = cf.writeCaseTransition(caseID, models.CaseStatusFilingRequested, nil, &clientID)
		if err != nil {
			cf.repairAfterDivergence(caseID)
			return nil, err
		}
	}

	cf.notifyAssignment(live, models.NotificationTypeAssignmentUpdate,
		"Filing requested", "The client has requested that the case be filed.")
	return c, nil
}

// SubmitFiling records that the lawyer filed the case with a court, stamping
// a generated court reference. Both the case pointer and the live assignment
// are accepted as proof of authority because reconciliation may be pending.
func (cf *CaseFlow) SubmitFiling(caseID, lawyerID string, notes *string) (*models.Case, error) {
	c, err := cf.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	if err := cf.authorizeBoundLawyer(c, lawyerID); err != nil {
		return nil, err
	}
	if c.Status != models.CaseStatusFilingRequested {
		return nil, fmt.Errorf("%w: cannot submit filing while case is %s", ErrInvalidTransition, c.Status)
	}

	reference := GenerateCourtReference(cf.Cfg.CourtReferencePrefix, c.ID)
	now := time.Now().UTC()

	for attempt := 0; attempt < maxOptimisticRetries; attempt++ {
		tr, err := ValidateCaseTransition(cf.DB, c, models.CaseStatusFiled, nil)
		if err != nil {
			return nil, err
		}
		err = cf.persistCase(c, map[string]interface{}{
			"status":            tr.Status,
			"current_lawyer_id": tr.CurrentLawyerID,
			"court_reference":   reference,
			"filed_at":          now,
			"status_changed_at": now,
			"status_changed_by": lawyerID,
		})
		if errors.Is(err, ErrOptimisticConflict) {
			if c, err = cf.loadCase(caseID); err != nil {
				return nil, err
			}
			if c.Status != models.CaseStatusFilingRequested {
				return nil, fmt.Errorf("%w: cannot submit filing while case is %s", ErrInvalidTransition, c.Status)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		c.Status = tr.Status
		c.CurrentLawyerID = tr.CurrentLawyerID
		c.CourtReference = &reference
		c.FiledAt = &now
		cf.notifyCase(c, models.NotificationTypeCaseUpdate,
			"Case filed", fmt.Sprintf("Your case was filed with reference %s.", reference))
		return c, nil
	}
	return nil, fmt.Errorf("%w: case %s", ErrOptimisticConflict, caseID)
}

// RequestScheduling asks the scheduling collaborator whether the proposed slot
// is free and, if so, marks the case as awaiting a hearing. The conflict check
// may be slow, so it is deadline-bounded; on timeout the case is left
// unchanged rather than guessed at.
func (cf *CaseFlow) RequestScheduling(ctx context.Context, caseID, lawyerID string, date time.Time, startTime, endTime string) (*models.Case, error) {
	c, err := cf.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	if err := cf.authorizeBoundLawyer(c, lawyerID); err != nil {
		return nil, err
	}
	if c.Status == models.CaseStatusSchedulingRequested {
		return nil, fmt.Errorf("%w: scheduling already requested for case %s", ErrConflictingAssignment, caseID)
	}
	if c.Status != models.CaseStatusFiled {
		return nil, fmt.Errorf("%w: cannot request scheduling while case is %s", ErrInvalidTransition, c.Status)
	}
	hasHearing, err := HasActiveHearing(cf.DB, caseID)
	if err != nil {
		return nil, err
	}
	if hasHearing {
		return nil, fmt.Errorf("%w: case %s already has a hearing", ErrConflictingAssignment, caseID)
	}

	checkCtx, cancel := context.WithTimeout(ctx, cf.Cfg.SchedulingCheckTimeout)
	defer cancel()
	free, err := cf.Slots.IsSlotFree(checkCtx, c.District, date, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("scheduling conflict check failed: %w", err)
	}
	if !free {
		return nil, fmt.Errorf("%w: %s %s-%s in %s", ErrSlotUnavailable, date.Format("2006-01-02"), startTime, endTime, c.District)
	}

	c, err = cf.writeCaseTransition(caseID, models.CaseStatusSchedulingRequested, nil, &lawyerID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ScheduleHearing records a hearing and moves the case to hearing_scheduled.
// Used by the scheduler role once a slot is confirmed.
func (cf *CaseFlow) ScheduleHearing(ctx context.Context, caseID, schedulerID, district string, date time.Time, startTime, endTime, room string) (*models.Case, *models.Hearing, error) {
	c, err := cf.loadCase(caseID)
	if err != nil {
		return nil, nil, err
	}
	if c.Status != models.CaseStatusSchedulingRequested && c.Status != models.CaseStatusRescheduled {
		return nil, nil, fmt.Errorf("%w: cannot schedule hearing while case is %s", ErrInvalidTransition, c.Status)
	}

	checkCtx, cancel := context.WithTimeout(ctx, cf.Cfg.SchedulingCheckTimeout)
	defer cancel()
	free, err := cf.Slots.IsSlotFree(checkCtx, district, date, startTime, endTime)
	if err != nil {
		return nil, nil, fmt.Errorf("scheduling conflict check failed: %w", err)
	}
	if !free {
		return nil, nil, fmt.Errorf("%w: %s %s-%s in %s", ErrSlotUnavailable, date.Format("2006-01-02"), startTime, endTime, district)
	}

	hearing, err := GetActiveHearing(cf.DB, caseID)
	if err != nil {
		return nil, nil, err
	}
	if hearing == nil {
		hearing, err = RecordHearing(cf.DB, caseID, district, date, startTime, endTime, room, &schedulerID)
		if err != nil {
			return nil, nil, err
		}
	} else {
		err = cf.DB.Model(hearing).Updates(map[string]interface{}{
			"district":   district,
			"date":       date,
			"start_time": startTime,
			"end_time":   endTime,
			"room":       room,
			"status":     models.HearingStatusScheduled,
		}).Error
		if err != nil {
			return nil, nil, fmt.Errorf("failed to update hearing: %w", err)
		}
	}

	for attempt := 0; attempt < maxOptimisticRetries; attempt++ {
		tr, err := ValidateCaseTransition(cf.DB, c, models.CaseStatusHearingScheduled, nil)
		if err != nil {
			return nil, nil, err
		}
		err = cf.persistCase(c, map[string]interface{}{
			"status":            tr.Status,
			"current_lawyer_id": tr.CurrentLawyerID,
			"hearing_date":      date,
			"hearing_time":      startTime,
			"hearing_room":      room,
			"status_changed_at": time.Now().UTC(),
			"status_changed_by": schedulerID,
		})
		if errors.Is(err, ErrOptimisticConflict) {
			if c, err = cf.loadCase(caseID); err != nil {
				return nil, nil, err
			}
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		c.Status = tr.Status
		c.CurrentLawyerID = tr.CurrentLawyerID
		cf.notifyCase(c, models.NotificationTypeCaseUpdate,
			"Hearing scheduled", fmt.Sprintf("A hearing was scheduled for %s at %s.", date.Format("2006-01-02"), startTime))
		return c, hearing, nil
	}
	return nil, nil, fmt.Errorf("%w: case %s", ErrOptimisticConflict, caseID)
}

// RescheduleHearing marks the current hearing as needing a new slot and moves
// the case to rescheduled. ScheduleHearing brings it back once a new slot is
// confirmed.
func (cf *CaseFlow) RescheduleHearing(caseID, schedulerID string, reason *string) (*models.Case, error) {
	c, err := cf.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CaseStatusHearingScheduled {
		return nil, fmt.Errorf("%w: cannot reschedule while case is %s", ErrInvalidTransition, c.Status)
	}

	hearing, err := GetActiveHearing(cf.DB, caseID)
	if err != nil {
		return nil, err
	}
	if hearing != nil {
		if err := cf.DB.Model(hearing).Update("status", models.HearingStatusRescheduled).Error; err != nil {
			return nil, fmt.Errorf("failed to mark hearing rescheduled: %w", err)
		}
	}

	c, err = cf.writeCaseTransition(caseID, models.CaseStatusRescheduled, nil, &schedulerID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CompleteCase closes out a case after its hearing, completing the live
// assignment.
func (cf *CaseFlow) CompleteCase(caseID, actorID string, notes *string) (*models.Case, error) {
	c, err := cf.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CaseStatusHearingScheduled && c.Status != models.CaseStatusRescheduled {
		return nil, fmt.Errorf("%w: cannot complete case while it is %s", ErrInvalidTransition, c.Status)
	}

	live, err := FindLiveAssignment(cf.DB, caseID)
	if err != nil {
		return nil, err
	}
	if live != nil {
		_, err = cf.writeAssignment(live.ID, func(a *models.Assignment) error {
			if a.Status == models.AssignmentStatusAccepted {
				if err := ActivateAssignment(a); err != nil {
					return err
				}
			}
			return CompleteAssignment(a, SanitizeTextPtr(notes))
		})
		if err != nil {
			return nil, err
		}
	}

	if hearing, herr := GetActiveHearing(cf.DB, caseID); herr == nil && hearing != nil {
		if err := cf.DB.Model(hearing).Update("status", models.HearingStatusHeld).Error; err != nil {
			log.Printf("[WARNING] Failed to mark hearing %s held: %v", hearing.ID, err)
		}
	}

	c, err = cf.writeCaseTransition(caseID, models.CaseStatusCompleted, nil, &actorID)
	if err != nil {
		cf.repairAfterDivergence(caseID)
		return nil, err
	}
	cf.notifyCase(c, models.NotificationTypeCaseUpdate, "Case completed", "Your case has been completed.")
	return c, nil
}

// CancelCase cancels a case from any non-terminal status, withdrawing the
// live assignment and unbinding the lawyer.
func (cf *CaseFlow) CancelCase(caseID, actorID string, reason *string) (*models.Case, error) {
	c, err := cf.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	if c.IsTerminal() {
		return nil, fmt.Errorf("%w: case %s is already %s", ErrInvalidTransition, caseID, c.Status)
	}

	live, err := FindLiveAssignment(cf.DB, caseID)
	if err != nil {
		return nil, err
	}
	if live != nil {
		_, err = cf.writeAssignment(live.ID, func(a *models.Assignment) error {
			return WithdrawAssignment(a, SanitizeTextPtr(reason))
		})
		if err != nil {
			return nil, err
		}
	}

	// Pending requests die with the case, so a later acceptance cannot
	// resurrect an engagement on a cancelled case.
	var pending []models.Assignment
	if err := cf.DB.Where("case_id = ? AND status = ?", caseID, models.AssignmentStatusPending).
		Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("failed to query pending assignments: %w", err)
	}
	cancelReason := "case cancelled"
	for i := range pending {
		a := &pending[i]
		from := a.Status
		a.Status = models.AssignmentStatusRejected
		a.RejectionReason = &cancelReason
		appendStatusChange(a, from, a.Status, &actorID, &cancelReason)
		if err := persistAssignment(cf.DB, a); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < maxOptimisticRetries; attempt++ {
		if !CanTransitionCase(c.Status, models.CaseStatusCancelled) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, models.CaseStatusCancelled)
		}
		err = cf.persistCase(c, map[string]interface{}{
			"status":            models.CaseStatusCancelled,
			"current_lawyer_id": nil,
			"status_changed_at": time.Now().UTC(),
			"status_changed_by": actorID,
		})
		if errors.Is(err, ErrOptimisticConflict) {
			if c, err = cf.loadCase(caseID); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			cf.repairAfterDivergence(caseID)
			return nil, err
		}
		c.Status = models.CaseStatusCancelled
		c.CurrentLawyerID = nil
		cf.notifyCase(c, models.NotificationTypeCaseUpdate, "Case cancelled", "The case has been cancelled.")
		return c, nil
	}
	return nil, fmt.Errorf("%w: case %s", ErrOptimisticConflict, caseID)
}

// UpdateStatus is the generic entry point used when no specialized operation
// applies. For lawyer-bound targets it re-validates that a lawyer resolves,
// running one reconciliation pass before giving up.
func (cf *CaseFlow) UpdateStatus(caseID string, target models.CaseStatus, actorID string, lawyerID *string) (*models.Case, error) {
	repaired := false
	for attempt := 0; attempt < maxOptimisticRetries; attempt++ {
		c, err := cf.loadCase(caseID)
		if err != nil {
			return nil, err
		}

		tr, err := ValidateCaseTransition(cf.DB, c, target, lawyerID)
		if errors.Is(err, ErrMissingLawyerAssignment) && !repaired {
			repaired = true
			cf.repairAfterDivergence(caseID)
			continue
		}
		if err != nil {
			return nil, err
		}

		err = cf.persistCaseTransition(c, tr, &actorID)
		if errors.Is(err, ErrOptimisticConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: case %s", ErrOptimisticConflict, caseID)
}

// --- helpers ---

func (cf *CaseFlow) loadCase(caseID string) (*models.Case, error) {
	var c models.Case
	if err := cf.DB.First(&c, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	return &c, nil
}

func (cf *CaseFlow) loadAssignment(assignmentID string) (*models.Assignment, error) {
	var a models.Assignment
	if err := cf.DB.First(&a, "id = ?", assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAssignmentNotFound, assignmentID)
		}
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}
	return &a, nil
}

// countOutstandingAssignments counts assignments that block a new request:
// anything pending or live.
func (cf *CaseFlow) countOutstandingAssignments(caseID string) (int64, error) {
	var count int64
	err := cf.DB.Model(&models.Assignment{}).
		Where("case_id = ? AND status IN ?", caseID, []models.AssignmentStatus{
			models.AssignmentStatusPending,
			models.AssignmentStatusAccepted,
			models.AssignmentStatusActive,
		}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

// requireLiveAssignment finds the live assignment, attempting one
// reconciliation pass before surfacing ErrMissingLawyerAssignment.
func (cf *CaseFlow) requireLiveAssignment(caseID string) (*models.Assignment, error) {
	live, err := FindLiveAssignment(cf.DB, caseID)
	if err != nil {
		return nil, err
	}
	if live == nil {
		cf.repairAfterDivergence(caseID)
		live, err = FindLiveAssignment(cf.DB, caseID)
		if err != nil {
			return nil, err
		}
	}
	if live == nil {
		return nil, fmt.Errorf("%w: case %s", ErrMissingLawyerAssignment, caseID)
	}
	return live, nil
}

// authorizeBoundLawyer accepts either the case pointer or the live assignment
// as proof that the actor is the bound lawyer, because reconciliation between
// the two may still be pending.
func (cf *CaseFlow) authorizeBoundLawyer(c *models.Case, lawyerID string) error {
	if c.CurrentLawyerID != nil && *c.CurrentLawyerID == lawyerID {
		return nil
	}
	live, err := FindLiveAssignment(cf.DB, c.ID)
	if err != nil {
		return err
	}
	if live != nil && live.LawyerID == lawyerID {
		return nil
	}
	return fmt.Errorf("%w: lawyer %s is not bound to case %s", ErrUnauthorized, lawyerID, c.ID)
}

// writeAssignment applies a state-machine mutation to an assignment and
// persists it, retrying on optimistic conflicts.
func (cf *CaseFlow) writeAssignment(assignmentID string, mutate func(*models.Assignment) error) (*models.Assignment, error) {
	for attempt := 0; attempt < maxOptimisticRetries; attempt++ {
		a, err := cf.loadAssignment(assignmentID)
		if err != nil {
			return nil, err
		}
		if err := mutate(a); err != nil {
			return nil, err
		}
		err = persistAssignment(cf.DB, a)
		if errors.Is(err, ErrOptimisticConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	return nil, fmt.Errorf("%w: assignment %s", ErrOptimisticConflict, assignmentID)
}

// writeCaseTransition validates and persists a case status transition,
// retrying on optimistic conflicts.
func (cf *CaseFlow) writeCaseTransition(caseID string, target models.CaseStatus, lawyerID *string, actorID *string) (*models.Case, error) {
	for attempt := 0; attempt < maxOptimisticRetries; attempt++ {
		c, err := cf.loadCase(caseID)
		if err != nil {
			return nil, err
		}
		if c.Status == target {
			return c, nil
		}
		tr, err := ValidateCaseTransition(cf.DB, c, target, lawyerID)
		if err != nil {
			return nil, err
		}
		err = cf.persistCaseTransition(c, tr, actorID)
		if errors.Is(err, ErrOptimisticConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: case %s", ErrOptimisticConflict, caseID)
}

// persistCaseTransition writes a validated transition with the version check.
func (cf *CaseFlow) persistCaseTransition(c *models.Case, tr *CaseTransition, actorID *string) error {
	now := time.Now().UTC()
	err := cf.persistCase(c, map[string]interface{}{
		"status":            tr.Status,
		"current_lawyer_id": tr.CurrentLawyerID,
		"status_changed_at": now,
		"status_changed_by": actorID,
	})
	if err != nil {
		return err
	}
	c.Status = tr.Status
	c.CurrentLawyerID = tr.CurrentLawyerID
	c.StatusChangedAt = &now
	c.StatusChangedBy = actorID
	return nil
}

// persistCase applies updates to the case row guarded by the optimistic
// version check. The in-memory version is bumped on success.
func (cf *CaseFlow) persistCase(c *models.Case, updates map[string]interface{}) error {
	updates["version"] = c.Version + 1
	res := cf.DB.Model(&models.Case{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update case %s: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: case %s", ErrOptimisticConflict, c.ID)
	}
	c.Version++
	return nil
}

// repairAfterDivergence runs an on-demand reconciliation for a case whose
// assignment write committed but whose case write failed or disagreed.
func (cf *CaseFlow) repairAfterDivergence(caseID string) {
	reconciler := &Reconciler{DB: cf.DB}
	report, err := reconciler.CheckCase(caseID)
	if err != nil {
		log.Printf("[WARNING] On-demand reconciliation of case %s failed: %v", caseID, err)
		return
	}
	for _, action := range report.Actions {
		log.Printf("[INFO] Reconciler repaired case %s: %s (%s)", action.CaseID, action.Action, action.Detail)
	}
}

func (cf *CaseFlow) notifyCase(c *models.Case, ntype, title, message string) {
	if cf.Notifier == nil || c == nil {
		return
	}
	cf.Notifier.NotifyUser(cf.Cfg, c.ClientID, ntype, title, message, &c.ID, nil)
	if c.CurrentLawyerID != nil {
		cf.Notifier.NotifyUser(cf.Cfg, *c.CurrentLawyerID, ntype, title, message, &c.ID, nil)
	}
}

func (cf *CaseFlow) notifyAssignment(a *models.Assignment, ntype, title, message string) {
	if cf.Notifier == nil || a == nil {
		return
	}
	cf.Notifier.NotifyUser(cf.Cfg, a.LawyerID, ntype, title, message, &a.CaseID, &a.ID)
}

// persistAssignment writes the assignment's mutable fields guarded by the
// version check and persists any new history entries alongside.
func persistAssignment(db *gorm.DB, a *models.Assignment) error {
	res := db.Model(&models.Assignment{}).
		Where("id = ? AND version = ?", a.ID, a.Version).
		Updates(map[string]interface{}{
			"status":                a.Status,
			"response_note":         a.ResponseNote,
			"rejection_reason":      a.RejectionReason,
			"accepted_at":           a.AcceptedAt,
			"activated_at":          a.ActivatedAt,
			"completed_at":          a.CompletedAt,
			"withdrawn_at":          a.WithdrawnAt,
			"response_time_hours":   a.ResponseTimeHours,
			"completion_time_hours": a.CompletionTimeHours,
			"version":               a.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update assignment %s: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: assignment %s", ErrOptimisticConflict, a.ID)
	}
	a.Version++

	for i := range a.StatusHistory {
		if a.StatusHistory[i].ID != "" {
			continue
		}
		a.StatusHistory[i].AssignmentID = a.ID
		if err := db.Create(&a.StatusHistory[i]).Error; err != nil {
			return fmt.Errorf("failed to record status change for assignment %s: %w", a.ID, err)
		}
	}
	return nil
}
