package handlers

import (
	"net/http"

	"case_flow_app_go/db"
	"case_flow_app_go/middleware"
	"case_flow_app_go/models"

	"github.com/labstack/echo/v4"
)

type lawyerDirectoryEntry struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Specialization *string  `json:"specialization"`
	Rating         *float64 `json:"rating"`
	QualifiedYear  *int     `json:"qualified_year"`
}

// GetAvailableLawyersHandler lists available lawyers for the assignment
// directory, ordered the same way auto-assignment ranks them. A
// specialization filter narrows the list.
func GetAvailableLawyersHandler(c echo.Context) error {
	query := db.DB.Model(&models.User{}).
		Where("role = ? AND is_available = ?", models.RoleLawyer, true).
		Order("rating DESC, qualified_year ASC")

	if spec := c.QueryParam("specialization"); spec != "" {
		query = query.Where("specialization = ?", spec)
	}

	var lawyers []models.User
	if err := query.Find(&lawyers).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch lawyers")
	}

	entries := make([]lawyerDirectoryEntry, 0, len(lawyers))
	for _, lawyer := range lawyers {
		entries = append(entries, lawyerDirectoryEntry{
			ID:             lawyer.ID,
			Name:           lawyer.Name,
			Email:          lawyer.Email,
			Specialization: lawyer.Specialization,
			Rating:         lawyer.Rating,
			QualifiedYear:  lawyer.QualifiedYear,
		})
	}
	return c.JSON(http.StatusOK, entries)
}

type availabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

// UpdateAvailabilityHandler toggles the authenticated lawyer's availability
// for new assignments.
func UpdateAvailabilityHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	err := db.DB.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("is_available", req.IsAvailable).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update availability")
	}
	return c.JSON(http.StatusOK, map[string]bool{"is_available": req.IsAvailable})
}
