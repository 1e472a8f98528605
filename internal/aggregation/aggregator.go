package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"sitepulse/internal/config"
	"sitepulse/internal/pkg/async"
	"sitepulse/internal/summary"
)

// Calculator slot names
const (
	slotPageviews           = "pageviews"
	slotUniqueVisitors      = "unique_visitors"
	slotSessions            = "sessions"
	slotBounceRate          = "bounce_rate"
	slotAvgSessionDuration  = "avg_session_duration"
	slotTopPages            = "top_pages"
	slotTopReferrers        = "top_referrers"
	slotTopCountries        = "top_countries"
	slotTopCities           = "top_cities"
	slotTopBrowsers         = "top_browsers"
	slotTopOperatingSystems = "top_operating_systems"
	slotDeviceBreakdown     = "device_breakdown"
	slotEventsCount         = "events_count"
	slotAvgEventsPerSession = "avg_events_per_session"
	slotTopCustomEvents     = "top_custom_events"
)

// Aggregator computes and persists one DailySummary per call. All metric
// calculators run concurrently over the same normalized UTC day window; the
// summary is written only when every calculator succeeded.
type Aggregator struct {
	db     *gorm.DB
	logger *slog.Logger
	cfg    *config.Config
}

func NewAggregator(db *gorm.DB, logger *slog.Logger, cfg *config.Config) *Aggregator {
	return &Aggregator{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}
}

// Aggregate computes every metric for the project over the UTC day containing
// date, upserts the assembled summary, and returns the stored row. Any
// calculator or storage failure fails the whole call; nothing partial is ever
// written. Retry policy belongs to the caller.
func (a *Aggregator) Aggregate(ctx context.Context, projectID uint, date time.Time) (*summary.DailySummary, error) {
	start, end := DayWindow(date)
	day := start.Format("2006-01-02")

	timeout := time.Duration(a.cfg.GetProjectTimeout()) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Calculator reads inherit ctx so an expired timeout abandons them.
	db := a.db.WithContext(ctx)
	limit := a.cfg.TopListLimit

	tasks := []async.Task{
		{Name: slotPageviews, Run: func() (any, error) {
			return CountPageviews(db, projectID, start, end)
		}},
		{Name: slotUniqueVisitors, Run: func() (any, error) {
			return CountUniqueVisitors(db, projectID, start, end)
		}},
		{Name: slotSessions, Run: func() (any, error) {
			return CountSessions(db, projectID, start, end)
		}},
		{Name: slotBounceRate, Run: func() (any, error) {
			return BounceRate(db, projectID, start, end)
		}},
		{Name: slotAvgSessionDuration, Run: func() (any, error) {
			return AvgSessionDuration(db, projectID, start, end)
		}},
		{Name: slotTopPages, Run: func() (any, error) {
			return TopPages(db, projectID, start, end, limit)
		}},
		{Name: slotTopReferrers, Run: func() (any, error) {
			return TopReferrers(db, projectID, start, end, limit)
		}},
		{Name: slotTopCountries, Run: func() (any, error) {
			return TopCountries(db, projectID, start, end, limit)
		}},
		{Name: slotTopCities, Run: func() (any, error) {
			return TopCities(db, projectID, start, end, limit)
		}},
		{Name: slotTopBrowsers, Run: func() (any, error) {
			return TopBrowsers(db, projectID, start, end, limit)
		}},
		{Name: slotTopOperatingSystems, Run: func() (any, error) {
			return TopOperatingSystems(db, projectID, start, end, limit)
		}},
		{Name: slotDeviceBreakdown, Run: func() (any, error) {
			return CountDeviceBreakdown(db, projectID, start, end)
		}},
		{Name: slotEventsCount, Run: func() (any, error) {
			return CountCustomEvents(db, projectID, start, end)
		}},
		{Name: slotAvgEventsPerSession, Run: func() (any, error) {
			return AvgEventsPerSession(db, projectID, start, end)
		}},
		{Name: slotTopCustomEvents, Run: func() (any, error) {
			return TopCustomEvents(db, projectID, start, end, limit)
		}},
	}

	pool := async.NewPool(a.cfg.CalculatorWorkers)
	results := pool.Execute(ctx, tasks)

	if len(results) < len(tasks) {
		return nil, fmt.Errorf("aggregation interrupted for project %d on %s: %w",
			projectID, day, ctx.Err())
	}
	for _, result := range results {
		if result.Err != nil {
			return nil, fmt.Errorf("aggregation failed for project %d on %s: calculator %s: %w",
				projectID, day, result.Name, result.Err)
		}
	}

	s := assembleSummary(projectID, start, results)

	if err := summary.Upsert(a.logger, a.db, s); err != nil {
		return nil, fmt.Errorf("aggregation failed for project %d on %s: %w", projectID, day, err)
	}

	stored, err := summary.GetByProjectAndDate(a.db, projectID, start)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed for project %d on %s: %w", projectID, day, err)
	}

	a.logger.Info("Aggregated daily summary",
		slog.Uint64("project_id", uint64(projectID)),
		slog.String("date", day),
		slog.Int("pageviews", stored.Pageviews),
		slog.Int("sessions", stored.Sessions))

	return stored, nil
}

func assembleSummary(projectID uint, date time.Time, results map[string]async.Result) *summary.DailySummary {
	breakdown := results[slotDeviceBreakdown].Data.(*DeviceBreakdown)

	return &summary.DailySummary{
		ProjectID:                 projectID,
		Date:                      date,
		Pageviews:                 results[slotPageviews].Data.(int),
		UniqueVisitors:            results[slotUniqueVisitors].Data.(int),
		Sessions:                  results[slotSessions].Data.(int),
		BounceRate:                results[slotBounceRate].Data.(*float64),
		AvgSessionDurationSeconds: results[slotAvgSessionDuration].Data.(*float64),
		TopPages:                  results[slotTopPages].Data.(summary.TopList),
		TopReferrers:              results[slotTopReferrers].Data.(summary.TopList),
		TopCountries:              results[slotTopCountries].Data.(summary.TopList),
		TopCities:                 results[slotTopCities].Data.(summary.TopList),
		TopBrowsers:               results[slotTopBrowsers].Data.(summary.TopList),
		TopOperatingSystems:       results[slotTopOperatingSystems].Data.(summary.TopList),
		DesktopCount:              breakdown.Desktop,
		MobileCount:               breakdown.Mobile,
		TabletCount:               breakdown.Tablet,
		EventsCount:               results[slotEventsCount].Data.(int),
		AvgEventsPerSession:       results[slotAvgEventsPerSession].Data.(*float64),
		TopCustomEvents:           results[slotTopCustomEvents].Data.(summary.TopList),
	}
}
