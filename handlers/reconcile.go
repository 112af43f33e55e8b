package handlers

import (
	"net/http"

	"case_flow_app_go/db"
	"case_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// RunReconciliationHandler runs a full repair sweep on demand, admin only.
// The same sweep runs hourly in the background; this endpoint exists so an
// operator can force it after noticing a divergent case.
func RunReconciliationHandler(c echo.Context) error {
	reconciler := &services.Reconciler{DB: db.DB}
	report, err := reconciler.RunOnce(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Reconciliation sweep failed")
	}
	return c.JSON(http.StatusOK, report)
}

// CheckCaseHandler runs the repair rules against a single case, admin only
func CheckCaseHandler(c echo.Context) error {
	reconciler := &services.Reconciler{DB: db.DB}
	report, err := reconciler.CheckCase(c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, report)
}
