package jobs

import (
	"context"
	"log/slog"
	"time"

	"sitepulse/internal/aggregation"
	"sitepulse/internal/config"
)

// BatchRunner is the slice of the aggregation engine the daily job needs.
type BatchRunner interface {
	AggregateAll(ctx context.Context, date time.Time) (*aggregation.Report, error)
}

// DailyAggregationJob rolls up yesterday's raw data for every active project.
type DailyAggregationJob struct {
	runner BatchRunner
	logger *slog.Logger
	cfg    *config.Config
}

func NewDailyAggregationJob(runner BatchRunner, logger *slog.Logger, cfg *config.Config) *DailyAggregationJob {
	return &DailyAggregationJob{
		runner: runner,
		logger: logger,
		cfg:    cfg,
	}
}

// Run aggregates the previous UTC day. Per-project failures land in the
// report and are logged; they are not retried here — operators re-run the
// failed subset through the manual trigger endpoints.
func (j *DailyAggregationJob) Run() error {
	date := aggregation.YesterdayUTC()

	j.logger.Info("Starting daily aggregation job",
		slog.String("date", date.Format("2006-01-02")))

	report, err := j.runner.AggregateAll(context.Background(), date)
	if err != nil {
		j.logger.Error("Daily aggregation job failed", slog.Any("error", err))
		return err
	}

	if len(report.Failed) > 0 {
		j.logger.Warn("Daily aggregation completed with failures",
			slog.String("date", date.Format("2006-01-02")),
			slog.Int("succeeded", len(report.Succeeded)),
			slog.Int("failed", len(report.Failed)))
		return nil
	}

	j.logger.Info("Daily aggregation job completed",
		slog.String("date", date.Format("2006-01-02")),
		slog.Int("succeeded", len(report.Succeeded)))
	return nil
}
