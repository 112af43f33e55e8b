package handlers

import (
	"fmt"
	"net/http"
	"time"

	"case_flow_app_go/db"
	"case_flow_app_go/models"
	"case_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// ExportCaseRegisterHandler streams the case register as an XLSX workbook,
// admin only. An optional status query parameter filters the register.
func ExportCaseRegisterHandler(c echo.Context) error {
	status := models.CaseStatus(c.QueryParam("status"))
	if status != "" && !models.IsValidCaseStatus(status) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid case status")
	}

	f, err := services.ExportCaseRegister(db.DB, status)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to build report")
	}
	defer f.Close()

	filename := fmt.Sprintf("case-register-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().WriteHeader(http.StatusOK)
	return f.Write(c.Response())
}

// ExportRepairReportHandler runs a reconciliation sweep and streams the repair
// report as an XLSX workbook, admin only.
func ExportRepairReportHandler(c echo.Context) error {
	reconciler := &services.Reconciler{DB: db.DB}
	report, err := reconciler.RunOnce(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Reconciliation sweep failed")
	}

	f, err := services.ExportRepairReport(report)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to build report")
	}
	defer f.Close()

	filename := fmt.Sprintf("repair-report-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().WriteHeader(http.StatusOK)
	return f.Write(c.Response())
}
