package handlers

import (
	"net/http"

	"case_flow_app_go/db"
	"case_flow_app_go/middleware"
	"case_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// GetNotificationsHandler returns the authenticated user's unread notifications
func GetNotificationsHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	svc := services.NewNotificationService(db.DB)
	notifications, err := svc.GetUnreadNotifications(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch notifications")
	}
	count, err := svc.GetNotificationCount(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch notification count")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"unread_count":  count,
	})
}

// MarkNotificationReadHandler marks one notification as read
func MarkNotificationReadHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	svc := services.NewNotificationService(db.DB)
	if err := svc.MarkAsRead(c.Param("id"), user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to mark notification as read")
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllNotificationsReadHandler marks every unread notification as read
func MarkAllNotificationsReadHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	svc := services.NewNotificationService(db.DB)
	if err := svc.MarkAllAsRead(user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to mark notifications as read")
	}
	return c.NoContent(http.StatusNoContent)
}
