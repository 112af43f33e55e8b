package services

import (
	"fmt"

	"case_flow_app_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportCaseRegister builds an XLSX workbook with the case register, one row
// per case, optionally filtered by status.
func ExportCaseRegister(db *gorm.DB, status models.CaseStatus) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Cases"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Case Number", "Status", "Case Type", "District",
		"Client", "Current Lawyer", "Court Reference", "Hearing Date", "Created At",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	query := db.Model(&models.Case{}).Preload("Client").Preload("CurrentLawyer")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var cases []models.Case
	row := 2
	err := query.FindInBatches(&cases, 100, func(tx *gorm.DB, batch int) error {
		for _, c := range cases {
			lawyerName := ""
			if c.CurrentLawyer != nil {
				lawyerName = c.CurrentLawyer.Name
			}
			courtRef := ""
			if c.CourtReference != nil {
				courtRef = *c.CourtReference
			}
			hearingDate := ""
			if c.HearingDate != nil {
				hearingDate = c.HearingDate.Format("2006-01-02")
			}

			values := []interface{}{
				c.CaseNumber, string(c.Status), c.CaseType, c.District,
				c.Client.Name, lawyerName, courtRef, hearingDate,
				c.CreatedAt.Format("2006-01-02 15:04"),
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				f.SetCellValue(sheet, cell, v)
			}
			row++
		}
		return nil
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to export case register: %w", err)
	}

	return f, nil
}

// ExportRepairReport builds an XLSX workbook from a reconciler repair report
// so operators can review what a sweep changed.
func ExportRepairReport(report *RepairReport) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Repairs"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Case ID", "Assignment ID", "Action", "Detail"}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, action := range report.Actions {
		values := []interface{}{action.CaseID, action.AssignmentID, action.Action, action.Detail}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	summary := fmt.Sprintf("Scanned %d cases, %d repairs, started %s",
		report.CasesScanned, len(report.Actions), report.StartedAt.Format("2006-01-02 15:04:05"))
	cell, _ := excelize.CoordinatesToCellName(1, len(report.Actions)+3)
	f.SetCellValue(sheet, cell, summary)

	return f, nil
}
