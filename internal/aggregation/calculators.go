// Package aggregation implements the daily rollup engine: independent metric
// calculators over a fixed project/day window, an orchestrator that fans them
// out and persists one DailySummary, and a batch runner over all projects.
package aggregation

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"sitepulse/internal/events"
	"sitepulse/internal/pkg/devices"
	"sitepulse/internal/summary"
)

// DeviceBreakdown holds visitor counts per canonical device category.
// Rows with unrecognized device types are excluded, never bucketed.
type DeviceBreakdown struct {
	Desktop int
	Mobile  int
	Tablet  int
}

// CountPageviews counts pageview events in the window.
func CountPageviews(db *gorm.DB, projectID uint, start, end time.Time) (int, error) {
	var count int64
	err := db.Model(&events.Event{}).
		Where("project_id = ? AND event_type = ? AND timestamp >= ? AND timestamp < ?",
			projectID, events.EventTypePageView, start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting pageviews: %w", err)
	}
	return int(count), nil
}

// CountUniqueVisitors counts distinct session identifiers across all events
// in the window.
func CountUniqueVisitors(db *gorm.DB, projectID uint, start, end time.Time) (int, error) {
	var count int64
	err := db.Model(&events.Event{}).
		Where("project_id = ? AND timestamp >= ? AND timestamp < ?", projectID, start, end).
		Distinct("session_id").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting unique visitors: %w", err)
	}
	return int(count), nil
}

// CountSessions counts sessions whose start time falls in the window.
func CountSessions(db *gorm.DB, projectID uint, start, end time.Time) (int, error) {
	var count int64
	err := db.Model(&events.Session{}).
		Where("project_id = ? AND started_at >= ? AND started_at < ?", projectID, start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting sessions: %w", err)
	}
	return int(count), nil
}

// BounceRate returns the percentage of sessions in the window with exactly one
// pageview, or nil when the window has no sessions.
func BounceRate(db *gorm.DB, projectID uint, start, end time.Time) (*float64, error) {
	var result struct {
		Sessions int64
		Bounces  int64
	}

	query := `
    SELECT
        COUNT(*) as sessions,
        COALESCE(SUM(CASE WHEN pageview_count = 1 THEN 1 ELSE 0 END), 0) as bounces
    FROM sessions
    WHERE project_id = ?
    AND started_at >= ? AND started_at < ?
    `

	err := db.Raw(query, projectID, start, end).Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("error computing bounce rate: %w", err)
	}

	if result.Sessions == 0 {
		return nil, nil
	}
	rate := float64(result.Bounces) / float64(result.Sessions) * 100
	return &rate, nil
}

// AvgSessionDuration returns the mean session length in seconds over sessions
// in the window that have a recorded end, or nil when no such sessions exist.
func AvgSessionDuration(db *gorm.DB, projectID uint, start, end time.Time) (*float64, error) {
	var result struct {
		Completed int64
		AvgSecs   float64
	}

	query := `
    SELECT
        COUNT(*) as completed,
        COALESCE(AVG((julianday(ended_at) - julianday(started_at)) * 86400.0), 0) as avg_secs
    FROM sessions
    WHERE project_id = ?
    AND started_at >= ? AND started_at < ?
    AND ended_at IS NOT NULL
    `

	err := db.Raw(query, projectID, start, end).Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("error computing avg session duration: %w", err)
	}

	if result.Completed == 0 {
		return nil, nil
	}
	return &result.AvgSecs, nil
}

// TopPages returns the most viewed URLs by raw pageview count.
func TopPages(db *gorm.DB, projectID uint, start, end time.Time, limit int) (summary.TopList, error) {
	query := `
    SELECT
        url as name,
        COUNT(*) as count
    FROM events
    WHERE project_id = ?
    AND event_type = ?
    AND timestamp >= ? AND timestamp < ?
    GROUP BY url
    ORDER BY count DESC, name ASC
    LIMIT ?
    `
	return scanTopList(db, "top pages", query,
		projectID, events.EventTypePageView, start, end, limit)
}

// TopReferrers returns the most common non-empty referrers by raw count.
func TopReferrers(db *gorm.DB, projectID uint, start, end time.Time, limit int) (summary.TopList, error) {
	query := `
    SELECT
        referrer as name,
        COUNT(*) as count
    FROM events
    WHERE project_id = ?
    AND event_type = ?
    AND timestamp >= ? AND timestamp < ?
    AND referrer != ''
    GROUP BY referrer
    ORDER BY count DESC, name ASC
    LIMIT ?
    `
	return scanTopList(db, "top referrers", query,
		projectID, events.EventTypePageView, start, end, limit)
}

// TopCountries returns countries ranked by distinct visitors.
func TopCountries(db *gorm.DB, projectID uint, start, end time.Time, limit int) (summary.TopList, error) {
	query := `
    SELECT
        country as name,
        COUNT(DISTINCT session_id) as count
    FROM events
    WHERE project_id = ?
    AND timestamp >= ? AND timestamp < ?
    AND country != ''
    GROUP BY country
    ORDER BY count DESC, name ASC
    LIMIT ?
    `
	return scanTopList(db, "top countries", query, projectID, start, end, limit)
}

// TopCities returns cities ranked by distinct visitors.
func TopCities(db *gorm.DB, projectID uint, start, end time.Time, limit int) (summary.TopList, error) {
	query := `
    SELECT
        city as name,
        COUNT(DISTINCT session_id) as count
    FROM events
    WHERE project_id = ?
    AND timestamp >= ? AND timestamp < ?
    AND city != ''
    GROUP BY city
    ORDER BY count DESC, name ASC
    LIMIT ?
    `
	return scanTopList(db, "top cities", query, projectID, start, end, limit)
}

// TopBrowsers returns browsers ranked by raw event count.
func TopBrowsers(db *gorm.DB, projectID uint, start, end time.Time, limit int) (summary.TopList, error) {
	query := `
    SELECT
        browser as name,
        COUNT(*) as count
    FROM events
    WHERE project_id = ?
    AND timestamp >= ? AND timestamp < ?
    AND browser != ''
    GROUP BY browser
    ORDER BY count DESC, name ASC
    LIMIT ?
    `
	return scanTopList(db, "top browsers", query, projectID, start, end, limit)
}

// TopOperatingSystems returns operating systems ranked by raw event count.
func TopOperatingSystems(db *gorm.DB, projectID uint, start, end time.Time, limit int) (summary.TopList, error) {
	query := `
    SELECT
        operating_system as name,
        COUNT(*) as count
    FROM events
    WHERE project_id = ?
    AND timestamp >= ? AND timestamp < ?
    AND operating_system != ''
    GROUP BY operating_system
    ORDER BY count DESC, name ASC
    LIMIT ?
    `
	return scanTopList(db, "top operating systems", query, projectID, start, end, limit)
}

// CountDeviceBreakdown classifies every event's device type through the rule
// database and counts distinct visitors per canonical category.
func CountDeviceBreakdown(db *gorm.DB, projectID uint, start, end time.Time) (*DeviceBreakdown, error) {
	rows, err := events.EventsInWindow(db, projectID, start, end)
	if err != nil {
		return nil, fmt.Errorf("error fetching device types: %w", err)
	}

	seen := map[string]map[string]bool{
		devices.Desktop: {},
		devices.Mobile:  {},
		devices.Tablet:  {},
	}
	for _, row := range rows {
		category := devices.Classify(row.DeviceType)
		if category == devices.Unknown {
			continue
		}
		seen[category][row.SessionID] = true
	}

	return &DeviceBreakdown{
		Desktop: len(seen[devices.Desktop]),
		Mobile:  len(seen[devices.Mobile]),
		Tablet:  len(seen[devices.Tablet]),
	}, nil
}

// CountCustomEvents counts custom (non-pageview) events in the window.
func CountCustomEvents(db *gorm.DB, projectID uint, start, end time.Time) (int, error) {
	var count int64
	err := db.Model(&events.Event{}).
		Where("project_id = ? AND event_type = ? AND timestamp >= ? AND timestamp < ?",
			projectID, events.EventTypeCustomEvent, start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting custom events: %w", err)
	}
	return int(count), nil
}

// AvgEventsPerSession returns the mean number of custom events per session in
// the window, or nil when the window has no sessions.
func AvgEventsPerSession(db *gorm.DB, projectID uint, start, end time.Time) (*float64, error) {
	sessions, err := CountSessions(db, projectID, start, end)
	if err != nil {
		return nil, err
	}
	if sessions == 0 {
		return nil, nil
	}

	eventCount, err := CountCustomEvents(db, projectID, start, end)
	if err != nil {
		return nil, err
	}

	avg := float64(eventCount) / float64(sessions)
	return &avg, nil
}

// TopCustomEvents returns custom event names ranked by raw count.
func TopCustomEvents(db *gorm.DB, projectID uint, start, end time.Time, limit int) (summary.TopList, error) {
	query := `
    SELECT
        custom_event_name as name,
        COUNT(*) as count
    FROM events
    WHERE project_id = ?
    AND event_type = ?
    AND timestamp >= ? AND timestamp < ?
    AND custom_event_name != ''
    GROUP BY custom_event_name
    ORDER BY count DESC, name ASC
    LIMIT ?
    `
	return scanTopList(db, "top custom events", query,
		projectID, events.EventTypeCustomEvent, start, end, limit)
}

func scanTopList(db *gorm.DB, metric, query string, args ...interface{}) (summary.TopList, error) {
	var rawResults []struct {
		Name  string
		Count int64
	}

	if err := db.Raw(query, args...).Scan(&rawResults).Error; err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", metric, err)
	}

	results := make(summary.TopList, len(rawResults))
	for i, r := range rawResults {
		results[i] = summary.TopItem{Name: r.Name, Count: r.Count}
	}
	return results, nil
}
