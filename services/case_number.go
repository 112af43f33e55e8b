package services

import (
	"fmt"
	"strings"
	"time"

	"case_flow_app_go/models"

	"gorm.io/gorm"
)

// GenerateCaseNumber generates the next sequential case number for the year.
// Format: {PREFIX}{YEAR}-{SEQUENCE}
// Example: CASE2026-0042
func GenerateCaseNumber(db *gorm.DB, prefix string) (string, error) {
	currentYear := time.Now().Year()
	yearPrefix := fmt.Sprintf("%s%d-", prefix, currentYear)

	// Find the highest sequence number for this year
	var maxCase models.Case
	err := db.Where("case_number LIKE ?", yearPrefix+"%").
		Order("case_number DESC").
		First(&maxCase).Error

	sequence := 1
	if err == nil {
		var parsedSeq int
		_, scanErr := fmt.Sscanf(maxCase.CaseNumber, yearPrefix+"%d", &parsedSeq)
		if scanErr == nil {
			sequence = parsedSeq + 1
		}
	} else if err != gorm.ErrRecordNotFound {
		return "", fmt.Errorf("failed to query max case number: %w", err)
	}

	return fmt.Sprintf("%s%04d", yearPrefix, sequence), nil
}

// EnsureUniqueCaseNumber generates a unique case number with retry logic.
// After maxRetries collisions it falls back to a timestamp-based suffix so
// creation never blocks on sequence contention.
func EnsureUniqueCaseNumber(db *gorm.DB, prefix string) (string, error) {
	const maxRetries = 10

	for i := 0; i < maxRetries; i++ {
		caseNumber, err := GenerateCaseNumber(db, prefix)
		if err != nil {
			return "", err
		}

		var count int64
		if err := db.Model(&models.Case{}).Where("case_number = ?", caseNumber).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check case number uniqueness: %w", err)
		}

		if count == 0 {
			return caseNumber, nil
		}

		// Collision detected, retry
	}

	// Timestamp fallback on exhaustion
	return fmt.Sprintf("%s%d-%d", prefix, time.Now().Year(), time.Now().UnixNano()%1_000_000_000), nil
}

// GenerateCourtReference builds the court filing reference stamped when a
// lawyer submits a filing.
// Format: {PREFIX}{YEAR}-{last 6 of case id}
func GenerateCourtReference(prefix, caseID string) string {
	compact := strings.ReplaceAll(caseID, "-", "")
	tail := compact
	if len(compact) > 6 {
		tail = compact[len(compact)-6:]
	}
	return fmt.Sprintf("%s%d-%s", prefix, time.Now().Year(), tail)
}
