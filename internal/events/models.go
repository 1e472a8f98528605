package events

import "time"

// EventType represents the type of event.
type EventType int

const (
	EventTypePageView    EventType = 1
	EventTypeCustomEvent EventType = 2
)

// UnknownCountry is stored when geo enrichment could not resolve a country.
const UnknownCountry = "ZZ"

// Event represents a tracked page view or custom event.
// Rows are written by the ingestion pipeline; the aggregation engine only reads them.
type Event struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	ProjectID       uint      `gorm:"index:idx_project_timestamp;not null"`
	SessionID       string    `gorm:"index;size:64;not null"`
	EventType       EventType `gorm:"not null;default:1"`
	URL             string    `gorm:"index;not null"`
	Referrer        string    `gorm:"index"`
	Country         string    `gorm:"size:2"`
	City            string
	Browser         string
	OperatingSystem string
	DeviceType      string
	CustomEventName string    `gorm:"index"`
	Timestamp       time.Time `gorm:"index:idx_project_timestamp;not null"`
	CreatedAt       time.Time
}

// Session represents a bounded visit: a sequence of events from one visitor
// with a start and optional end time.
type Session struct {
	ID            uint       `gorm:"primaryKey;autoIncrement"`
	ProjectID     uint       `gorm:"index:idx_project_started;uniqueIndex:idx_project_session;not null"`
	SessionID     string     `gorm:"uniqueIndex:idx_project_session;size:64;not null"`
	StartedAt     time.Time  `gorm:"index:idx_project_started;not null"`
	EndedAt       *time.Time // nil while the session is still open
	PageviewCount int        `gorm:"not null;default:0"`
	CreatedAt     time.Time
}

// DurationSeconds returns the recorded session length, or false when the
// session has no end time yet.
func (s *Session) DurationSeconds() (float64, bool) {
	if s.EndedAt == nil {
		return 0, false
	}
	return s.EndedAt.Sub(s.StartedAt).Seconds(), true
}
