package services

import "errors"

// Error taxonomy for case and assignment operations. All of these are
// value-returned so callers can decide per-error whether to repair, retry
// or propagate.
var (
	// ErrInvalidTransition means the requested status edge is not permitted.
	// Surfaced to the caller, never retried.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotAddressee means the acting lawyer is not the one the assignment
	// is addressed to.
	ErrNotAddressee = errors.New("lawyer is not the addressee of this assignment")

	// ErrNotPending means an accept/reject was attempted on an assignment
	// that already left the pending status.
	ErrNotPending = errors.New("assignment is not pending")

	// ErrUnauthorized means the actor is not the bound party for the action.
	ErrUnauthorized = errors.New("actor is not authorized for this action")

	// ErrMissingLawyerAssignment means a lawyer-bound status was requested
	// with no resolvable lawyer. The orchestrator attempts one reconciliation
	// pass before surfacing it.
	ErrMissingLawyerAssignment = errors.New("no lawyer resolvable for lawyer-bound status")

	// ErrConflictingAssignment means another outstanding assignment already
	// exists for the case.
	ErrConflictingAssignment = errors.New("conflicting assignment exists for case")

	// ErrNoLawyerAvailable means the selector found no candidate, even after
	// the fallback query. Retryable later.
	ErrNoLawyerAvailable = errors.New("no lawyer available for assignment")

	// ErrOptimisticConflict means a concurrent write was detected. Retried
	// internally a few times, then surfaced.
	ErrOptimisticConflict = errors.New("concurrent modification detected")

	// ErrCaseNotFound / ErrAssignmentNotFound map gorm record-not-found
	// results for the two stores.
	ErrCaseNotFound       = errors.New("case not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
)
