package handlers

import (
	"net/http"

	"case_flow_app_go/db"
	"case_flow_app_go/middleware"
	"case_flow_app_go/models"

	"github.com/labstack/echo/v4"
)

type requestAssignmentRequest struct {
	LawyerID string  `json:"lawyer_id"`
	Message  *string `json:"message"`
}

// RequestAssignmentHandler creates a pending assignment request addressed to a
// specific lawyer, client only.
func RequestAssignmentHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req requestAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.LawyerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Lawyer ID is required")
	}

	var lawyer models.User
	err := db.DB.First(&lawyer, "id = ? AND role = ?", req.LawyerID, models.RoleLawyer).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Lawyer not found")
	}

	updated, assignment, err := caseFlow(c).RequestAssignment(c.Param("id"), req.LawyerID, user.ID, req.Message, models.AssignmentTypeManual)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"case":       updated,
		"assignment": assignment,
	})
}

// AutoAssignHandler picks the best available lawyer for the case and creates
// the assignment request on the client's behalf.
func AutoAssignHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	updated, assignment, err := caseFlow(c).AutoAssign(c.Param("id"), user.ID)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"case":       updated,
		"assignment": assignment,
	})
}

type respondAssignmentRequest struct {
	Note   *string `json:"note"`
	Reason *string `json:"reason"`
}

// AcceptAssignmentHandler accepts a pending assignment, addressee lawyer only
func AcceptAssignmentHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req respondAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updated, assignment, err := caseFlow(c).AcceptAssignment(c.Param("id"), user.ID, req.Note)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"case":       updated,
		"assignment": assignment,
	})
}

// RejectAssignmentHandler rejects a pending assignment, addressee lawyer only
func RejectAssignmentHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req respondAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updated, assignment, err := caseFlow(c).RejectAssignment(c.Param("id"), user.ID, req.Reason)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"case":       updated,
		"assignment": assignment,
	})
}

// GetCaseAssignmentsHandler lists every assignment on a case with its history
func GetCaseAssignmentsHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var caseRecord models.Case
	if err := db.DB.First(&caseRecord, "id = ?", c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Case not found")
	}
	if !canViewCase(user, &caseRecord) {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}

	var assignments []models.Assignment
	err := db.DB.Preload("Lawyer").Preload("StatusHistory").
		Where("case_id = ?", caseRecord.ID).
		Order("created_at DESC").
		Find(&assignments).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch assignments")
	}
	return c.JSON(http.StatusOK, assignments)
}

// GetMyAssignmentsHandler lists the authenticated lawyer's assignments,
// optionally filtered by status.
func GetMyAssignmentsHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	query := db.DB.Preload("Case").Where("lawyer_id = ?", user.ID).Order("created_at DESC")
	if status := c.QueryParam("status"); status != "" {
		if !models.IsValidAssignmentStatus(models.AssignmentStatus(status)) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid assignment status")
		}
		query = query.Where("status = ?", status)
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch assignments")
	}
	return c.JSON(http.StatusOK, assignments)
}

// WithdrawAssignmentHandler lets a lawyer withdraw from a live assignment.
// The case is pushed back to verified so the client can request someone else.
func WithdrawAssignmentHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req respondAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updated, assignment, err := caseFlow(c).WithdrawAssignment(c.Param("id"), user.ID, req.Reason)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"case":       updated,
		"assignment": assignment,
	})
}
