package handlers

import (
	"net/http"
	"time"

	"case_flow_app_go/db"
	"case_flow_app_go/middleware"
	"case_flow_app_go/models"
	"case_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

type createCaseRequest struct {
	CaseType          string   `json:"case_type"`
	District          string   `json:"district"`
	Description       string   `json:"description"`
	PlaintiffName     string   `json:"plaintiff_name"`
	PlaintiffIDNumber string   `json:"plaintiff_id_number"`
	DefendantName     string   `json:"defendant_name"`
	DefendantIDNumber *string  `json:"defendant_id_number"`
	MonetaryValue     *float64 `json:"monetary_value"`
	ReliefSought      *string  `json:"relief_sought"`
}

// CreateCaseHandler files a new case for the authenticated client
func CreateCaseHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req createCaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.CaseType == "" || req.District == "" || req.Description == "" ||
		req.PlaintiffName == "" || req.DefendantName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required case fields")
	}

	newCase, err := caseFlow(c).CreateCase(user.ID, services.CreateCaseInput{
		CaseType:          req.CaseType,
		District:          req.District,
		Description:       req.Description,
		PlaintiffName:     req.PlaintiffName,
		PlaintiffIDNumber: req.PlaintiffIDNumber,
		DefendantName:     req.DefendantName,
		DefendantIDNumber: req.DefendantIDNumber,
		MonetaryValue:     req.MonetaryValue,
		ReliefSought:      req.ReliefSought,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, newCase)
}

// GetCasesHandler lists cases visible to the authenticated user: clients see
// their own filings, lawyers the cases bound to them, admins and schedulers
// everything.
func GetCasesHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	query := db.DB.Preload("Client").Preload("CurrentLawyer").Order("created_at DESC")
	switch user.Role {
	case models.RoleClient:
		query = query.Where("client_id = ?", user.ID)
	case models.RoleLawyer:
		query = query.Where("current_lawyer_id = ?", user.ID)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var cases []models.Case
	if err := query.Find(&cases).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch cases")
	}
	return c.JSON(http.StatusOK, cases)
}

// GetCaseHandler returns a single case with its assignments and documents
func GetCaseHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	id := c.Param("id")

	var caseRecord models.Case
	err := db.DB.Preload("Client").Preload("CurrentLawyer").
		Preload("Assignments").Preload("Documents").
		First(&caseRecord, "id = ?", id).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Case not found")
	}

	if !canViewCase(user, &caseRecord) {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}
	return c.JSON(http.StatusOK, caseRecord)
}

// DeleteCaseHandler soft-deletes an unfiled case, client only
func DeleteCaseHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if err := caseFlow(c).DeleteCase(c.Param("id"), user.ID); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// VerifyCaseHandler moves a pending case to verified, admin only
func VerifyCaseHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	updated, err := caseFlow(c).UpdateStatus(c.Param("id"), models.CaseStatusVerified, user.ID, nil)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

type updateStatusRequest struct {
	Status   models.CaseStatus `json:"status"`
	LawyerID *string           `json:"lawyer_id"`
}

// UpdateCaseStatusHandler is the generic status entry point, admin only
func UpdateCaseStatusHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if !models.IsValidCaseStatus(req.Status) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid case status")
	}

	updated, err := caseFlow(c).UpdateStatus(c.Param("id"), req.Status, user.ID, req.LawyerID)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

type messageRequest struct {
	Message *string `json:"message"`
}

// RequestFilingHandler asks the bound lawyer to file the case, client only
func RequestFilingHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updated, err := caseFlow(c).RequestFiling(c.Param("id"), user.ID, req.Message)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

type submitFilingRequest struct {
	Notes *string `json:"notes"`
}

// SubmitFilingHandler records the court filing, bound lawyer only
func SubmitFilingHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req submitFilingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updated, err := caseFlow(c).SubmitFiling(c.Param("id"), user.ID, req.Notes)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

type schedulingRequest struct {
	Date      string `json:"date"` // "2006-01-02"
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	District  string `json:"district"`
	Room      string `json:"room"`
}

func (r *schedulingRequest) parseDate() (time.Time, error) {
	return time.Parse("2006-01-02", r.Date)
}

// RequestSchedulingHandler asks for a hearing slot, bound lawyer only
func RequestSchedulingHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req schedulingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	date, err := req.parseDate()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}
	if req.StartTime == "" || req.EndTime == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Start and end time are required")
	}

	updated, err := caseFlow(c).RequestScheduling(c.Request().Context(), c.Param("id"), user.ID, date, req.StartTime, req.EndTime)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// ScheduleHearingHandler records a hearing for a case, scheduler only
func ScheduleHearingHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req schedulingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	date, err := req.parseDate()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}
	if req.District == "" || req.StartTime == "" || req.EndTime == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "District, start and end time are required")
	}

	updated, hearing, err := caseFlow(c).ScheduleHearing(c.Request().Context(), c.Param("id"), user.ID, req.District, date, req.StartTime, req.EndTime, req.Room)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"case":    updated,
		"hearing": hearing,
	})
}

type reasonRequest struct {
	Reason *string `json:"reason"`
}

// RescheduleHearingHandler marks the hearing for rescheduling, scheduler only
func RescheduleHearingHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req reasonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updated, err := caseFlow(c).RescheduleHearing(c.Param("id"), user.ID, req.Reason)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// CompleteCaseHandler closes a case after its hearing
func CompleteCaseHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req submitFilingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updated, err := caseFlow(c).CompleteCase(c.Param("id"), user.ID, req.Notes)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// CancelCaseHandler cancels a case from any non-terminal status
func CancelCaseHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req reasonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	var caseRecord models.Case
	if err := db.DB.First(&caseRecord, "id = ?", c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Case not found")
	}
	if !canMutateCase(user, &caseRecord) {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}

	updated, err := caseFlow(c).CancelCase(caseRecord.ID, user.ID, req.Reason)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func canViewCase(user *models.User, caseRecord *models.Case) bool {
	switch user.Role {
	case models.RoleAdmin, models.RoleScheduler:
		return true
	case models.RoleClient:
		return caseRecord.ClientID == user.ID
	case models.RoleLawyer:
		return caseRecord.CurrentLawyerID != nil && *caseRecord.CurrentLawyerID == user.ID
	}
	return false
}

func canMutateCase(user *models.User, caseRecord *models.Case) bool {
	if user.Role == models.RoleAdmin {
		return true
	}
	return canViewCase(user, caseRecord) && user.Role != models.RoleScheduler
}
