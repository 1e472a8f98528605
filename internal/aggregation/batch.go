package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"sitepulse/internal/config"
	"sitepulse/internal/pkg/async"
	"sitepulse/internal/summary"
)

// ProjectLister lists the projects a batch run covers.
type ProjectLister interface {
	ActiveProjectIDs(ctx context.Context) ([]uint, error)
}

// ProjectAggregator aggregates one project for one day.
type ProjectAggregator interface {
	Aggregate(ctx context.Context, projectID uint, date time.Time) (*summary.DailySummary, error)
}

// ProjectFailure records one project's aggregation error in a batch report.
type ProjectFailure struct {
	ProjectID uint   `json:"project_id"`
	Error     string `json:"error"`
}

// Report is the outcome of one batch run. A non-empty Failed list is an
// expected, actionable result, not an overall failure.
type Report struct {
	Date      time.Time               `json:"date"`
	Succeeded []*summary.DailySummary `json:"succeeded"`
	Failed    []ProjectFailure        `json:"failed"`
}

// Runner fans one aggregation per active project out over a bounded pool and
// joins all outcomes into a Report. Projects are fully independent: one
// failure or timeout never cancels or blocks the others.
type Runner struct {
	projects ProjectLister
	agg      ProjectAggregator
	logger   *slog.Logger
	cfg      *config.Config
}

func NewRunner(projects ProjectLister, agg ProjectAggregator, logger *slog.Logger, cfg *config.Config) *Runner {
	return &Runner{
		projects: projects,
		agg:      agg,
		logger:   logger,
		cfg:      cfg,
	}
}

// AggregateAll aggregates every active project for the UTC day containing
// date. It errors only when the project list itself cannot be obtained; all
// per-project outcomes land in the report. No project is retried here.
func (r *Runner) AggregateAll(ctx context.Context, date time.Time) (*Report, error) {
	day, _ := DayWindow(date)

	projectIDs, err := r.projects.ActiveProjectIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("batch aggregation for %s: %w", day.Format("2006-01-02"), err)
	}

	r.logger.Info("Starting batch aggregation",
		slog.String("date", day.Format("2006-01-02")),
		slog.Int("projects", len(projectIDs)))

	tasks := make([]async.Task, len(projectIDs))
	for i, projectID := range projectIDs {
		id := projectID
		tasks[i] = async.Task{
			Name: fmt.Sprintf("project-%d", id),
			Run: func() (any, error) {
				return r.agg.Aggregate(ctx, id, day)
			},
		}
	}

	pool := async.NewPool(r.cfg.BatchConcurrency)
	results := pool.Execute(ctx, tasks)

	report := &Report{
		Date:      day,
		Succeeded: []*summary.DailySummary{},
		Failed:    []ProjectFailure{},
	}
	for i, projectID := range projectIDs {
		result, settled := results[tasks[i].Name]
		if !settled {
			report.Failed = append(report.Failed, ProjectFailure{
				ProjectID: projectID,
				Error:     fmt.Sprintf("did not complete: %v", ctx.Err()),
			})
			continue
		}
		if result.Err != nil {
			r.logger.Error("Project aggregation failed",
				slog.Uint64("project_id", uint64(projectID)),
				slog.Any("error", result.Err))
			report.Failed = append(report.Failed, ProjectFailure{
				ProjectID: projectID,
				Error:     result.Err.Error(),
			})
			continue
		}
		report.Succeeded = append(report.Succeeded, result.Data.(*summary.DailySummary))
	}

	sort.Slice(report.Succeeded, func(i, j int) bool {
		return report.Succeeded[i].ProjectID < report.Succeeded[j].ProjectID
	})
	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].ProjectID < report.Failed[j].ProjectID
	})

	r.logger.Info("Batch aggregation finished",
		slog.String("date", day.Format("2006-01-02")),
		slog.Int("succeeded", len(report.Succeeded)),
		slog.Int("failed", len(report.Failed)))

	return report, nil
}
