package services

import (
	"context"
	"fmt"
	"time"

	"case_flow_app_go/models"

	"gorm.io/gorm"
)

// SlotChecker is the scheduling collaborator: it decides whether a hearing
// slot is free. Implementations may be slow, so callers bound the check with
// a context deadline.
type SlotChecker interface {
	IsSlotFree(ctx context.Context, district string, date time.Time, startTime, endTime string) (bool, error)
}

// DBSlotChecker checks slot availability against recorded hearings.
type DBSlotChecker struct {
	DB *gorm.DB
}

// IsSlotFree reports whether no active hearing overlaps the requested slot in
// the district on that day. Times are "HH:MM" strings, which compare correctly
// lexicographically.
func (c *DBSlotChecker) IsSlotFree(ctx context.Context, district string, date time.Time, startTime, endTime string) (bool, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var count int64
	err := c.DB.WithContext(ctx).Model(&models.Hearing{}).
		Where("district = ? AND date >= ? AND date < ?", district, dayStart, dayEnd).
		Where("status IN ?", []string{models.HearingStatusScheduled, models.HearingStatusRescheduled}).
		Where("start_time < ? AND end_time > ?", endTime, startTime).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check hearing slot: %w", err)
	}
	return count == 0, nil
}

// HasActiveHearing reports whether the case has a scheduled or rescheduled
// hearing record.
func HasActiveHearing(db *gorm.DB, caseID string) (bool, error) {
	var count int64
	err := db.Model(&models.Hearing{}).
		Where("case_id = ? AND status IN ?", caseID,
			[]string{models.HearingStatusScheduled, models.HearingStatusRescheduled}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecordHearing persists a hearing record for a case.
func RecordHearing(db *gorm.DB, caseID, district string, date time.Time, startTime, endTime, room string, scheduledByID *string) (*models.Hearing, error) {
	hearing := &models.Hearing{
		CaseID:        caseID,
		District:      district,
		Date:          date,
		StartTime:     startTime,
		EndTime:       endTime,
		Room:          room,
		Status:        models.HearingStatusScheduled,
		ScheduledByID: scheduledByID,
	}
	if err := db.Create(hearing).Error; err != nil {
		return nil, fmt.Errorf("failed to record hearing: %w", err)
	}
	return hearing, nil
}

// GetActiveHearing returns the case's scheduled or rescheduled hearing, or nil.
func GetActiveHearing(db *gorm.DB, caseID string) (*models.Hearing, error) {
	var hearing models.Hearing
	err := db.Where("case_id = ? AND status IN ?", caseID,
		[]string{models.HearingStatusScheduled, models.HearingStatusRescheduled}).
		Order("date DESC").
		First(&hearing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &hearing, nil
}
