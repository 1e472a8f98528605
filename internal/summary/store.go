package summary

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

const dailySummariesTableName = "daily_summaries"

// Upsert writes a fully computed summary keyed on (project_id, date):
// insert if absent, otherwise overwrite every metric field. created_at is
// preserved on overwrite, updated_at is bumped. Concurrent writers for the
// same key resolve last-writer-wins, which is safe because every write
// carries a complete recomputation, never a partial merge.
func Upsert(logger *slog.Logger, db *gorm.DB, s *DailySummary) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO daily_summaries (
			project_id, date,
			pageviews, unique_visitors,
			sessions, bounce_rate, avg_session_duration_seconds,
			top_pages, top_referrers, top_countries, top_cities, top_browsers, top_operating_systems,
			desktop_count, mobile_count, tablet_count,
			events_count, avg_events_per_session, top_custom_events,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, date) DO UPDATE SET
			pageviews = excluded.pageviews,
			unique_visitors = excluded.unique_visitors,
			sessions = excluded.sessions,
			bounce_rate = excluded.bounce_rate,
			avg_session_duration_seconds = excluded.avg_session_duration_seconds,
			top_pages = excluded.top_pages,
			top_referrers = excluded.top_referrers,
			top_countries = excluded.top_countries,
			top_cities = excluded.top_cities,
			top_browsers = excluded.top_browsers,
			top_operating_systems = excluded.top_operating_systems,
			desktop_count = excluded.desktop_count,
			mobile_count = excluded.mobile_count,
			tablet_count = excluded.tablet_count,
			events_count = excluded.events_count,
			avg_events_per_session = excluded.avg_events_per_session,
			top_custom_events = excluded.top_custom_events,
			updated_at = ?
	`

	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Exec(query,
			s.ProjectID, s.Date,
			s.Pageviews, s.UniqueVisitors,
			s.Sessions, s.BounceRate, s.AvgSessionDurationSeconds,
			s.TopPages, s.TopReferrers, s.TopCountries, s.TopCities, s.TopBrowsers, s.TopOperatingSystems,
			s.DesktopCount, s.MobileCount, s.TabletCount,
			s.EventsCount, s.AvgEventsPerSession, s.TopCustomEvents,
			now, now,
			now).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert daily summary: %w", err)
	}

	return nil
}

// GetByProjectAndDate loads the stored summary for one project and day.
// The date must already be normalized to UTC midnight.
func GetByProjectAndDate(db *gorm.DB, projectID uint, date time.Time) (*DailySummary, error) {
	var s DailySummary
	err := db.Table(dailySummariesTableName).
		Where("project_id = ? AND date = ?", projectID, date).
		First(&s).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load daily summary for project %d on %s: %w",
			projectID, date.Format("2006-01-02"), err)
	}
	return &s, nil
}
