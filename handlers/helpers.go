package handlers

import (
	"errors"
	"net/http"

	"case_flow_app_go/config"
	"case_flow_app_go/db"
	"case_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// getConfig returns the application config placed on the context by the server
func getConfig(c echo.Context) *config.Config {
	cfg, _ := c.Get("config").(*config.Config)
	return cfg
}

// caseFlow builds the orchestrator for the current request
func caseFlow(c echo.Context) *services.CaseFlow {
	return services.NewCaseFlow(db.DB, getConfig(c))
}

// serviceError maps the service error taxonomy onto HTTP status codes.
// Callers always receive the typed reason; nothing is retried here.
func serviceError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, services.ErrCaseNotFound),
		errors.Is(err, services.ErrAssignmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrNotAddressee):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrNotPending),
		errors.Is(err, services.ErrMissingLawyerAssignment):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConflictingAssignment),
		errors.Is(err, services.ErrOptimisticConflict),
		errors.Is(err, services.ErrSlotUnavailable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNoLawyerAvailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}
