// Package summary owns the DailySummary rollup: the one persisted artifact of
// the aggregation engine, one row per (project, UTC day).
package summary

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TopItem is a single entry of a ranked list.
type TopItem struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// TopList is a ranked list persisted as a JSON column.
type TopList []TopItem

// Scan implements sql.Scanner
func (l *TopList) Scan(value interface{}) error {
	if value == nil {
		*l = TopList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("failed to unmarshal TopList value: ", value))
	}

	if len(bytes) == 0 {
		*l = TopList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer
func (l TopList) Value() (driver.Value, error) {
	if l == nil {
		l = TopList{}
	}
	return json.Marshal(l)
}

// DailySummary holds all pre-computed metrics for one project and one UTC day.
// Dashboard queries read these rows instead of scanning raw events.
type DailySummary struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ProjectID uint      `gorm:"uniqueIndex:idx_project_date;not null" json:"project_id"`
	Date      time.Time `gorm:"uniqueIndex:idx_project_date;type:datetime;not null" json:"date"`

	// Traffic
	Pageviews      int `gorm:"not null;default:0" json:"pageviews"`
	UniqueVisitors int `gorm:"not null;default:0" json:"unique_visitors"`

	// Sessions
	Sessions                  int      `gorm:"not null;default:0" json:"sessions"`
	BounceRate                *float64 `json:"bounce_rate"`
	AvgSessionDurationSeconds *float64 `json:"avg_session_duration_seconds"`

	// Ranked lists
	TopPages            TopList `gorm:"type:text" json:"top_pages"`
	TopReferrers        TopList `gorm:"type:text" json:"top_referrers"`
	TopCountries        TopList `gorm:"type:text" json:"top_countries"`
	TopCities           TopList `gorm:"type:text" json:"top_cities"`
	TopBrowsers         TopList `gorm:"type:text" json:"top_browsers"`
	TopOperatingSystems TopList `gorm:"type:text" json:"top_operating_systems"`

	// Device breakdown (unrecognized device types are excluded)
	DesktopCount int `gorm:"not null;default:0" json:"desktop_count"`
	MobileCount  int `gorm:"not null;default:0" json:"mobile_count"`
	TabletCount  int `gorm:"not null;default:0" json:"tablet_count"`

	// Custom events
	EventsCount         int      `gorm:"not null;default:0" json:"events_count"`
	AvgEventsPerSession *float64 `json:"avg_events_per_session"`
	TopCustomEvents     TopList  `gorm:"type:text" json:"top_custom_events"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
