package services

import (
	"log"
	"time"

	"case_flow_app_go/config"
	"case_flow_app_go/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// NotifyUser persists an in-app notification and sends an email to the user,
// fire-and-forget: failures are logged and never roll back the transition
// that triggered them.
func (s *NotificationService) NotifyUser(cfg *config.Config, userID, ntype, title, message string, caseID, assignmentID *string) {
	linkURL := ""
	caseNumber := ""
	if caseID != nil {
		linkURL = "/cases/" + *caseID
		var c models.Case
		if err := s.DB.Select("case_number").First(&c, "id = ?", *caseID).Error; err == nil {
			caseNumber = c.CaseNumber
		}
	}

	notification := &models.Notification{
		UserID:       userID,
		CaseID:       caseID,
		AssignmentID: assignmentID,
		Type:         ntype,
		Title:        title,
		Message:      message,
		LinkURL:      linkURL,
	}
	if err := s.CreateNotification(notification); err != nil {
		log.Printf("[WARNING] Failed to create notification for user %s: %v", userID, err)
	}

	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		log.Printf("[WARNING] Failed to load user %s for notification email: %v", userID, err)
		return
	}
	if cfg != nil {
		SendEmailAsync(cfg, BuildCaseUpdateEmail(user.Email, user.Name, title, message, caseNumber))
	}
}

func (s *NotificationService) GetUnreadNotifications(userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.DB.Where("user_id = ? AND read_at IS NULL", userID).
		Order("created_at DESC").
		Limit(20).
		Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) MarkAsRead(notificationID, userID string) error {
	now := time.Now()
	return s.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read_at", now).Error
}

func (s *NotificationService) MarkAllAsRead(userID string) error {
	now := time.Now()
	return s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now).Error
}

func (s *NotificationService) GetNotificationCount(userID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) CreateNotification(notification *models.Notification) error {
	return s.DB.Create(notification).Error
}
