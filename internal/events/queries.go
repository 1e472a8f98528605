package events

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EventsInWindow returns all events for one project with timestamps in
// [start, end). The result is read-only input for the metric calculators.
func EventsInWindow(db *gorm.DB, projectID uint, start, end time.Time) ([]Event, error) {
	var rows []Event
	err := db.Where("project_id = ? AND timestamp >= ? AND timestamp < ?", projectID, start, end).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query events in window: %w", err)
	}
	return rows, nil
}

// SessionsInWindow returns all sessions for one project that started in
// [start, end).
func SessionsInWindow(db *gorm.DB, projectID uint, start, end time.Time) ([]Session, error) {
	var rows []Session
	err := db.Where("project_id = ? AND started_at >= ? AND started_at < ?", projectID, start, end).
		Order("started_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions in window: %w", err)
	}
	return rows, nil
}
