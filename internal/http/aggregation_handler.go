package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sitepulse/internal/aggregation"
	"sitepulse/internal/config"
	"sitepulse/internal/events"
	"sitepulse/internal/projects"
	"sitepulse/internal/summary"
)

const dateLayout = "2006-01-02"

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// BatchReportResponse is the manual batch-trigger payload. The HTTP call
// succeeds even when individual projects failed: partial completion is an
// expected outcome the operator acts on, not an exceptional one.
type BatchReportResponse struct {
	Date       string                       `json:"date"`
	Aggregated int                          `json:"aggregated"`
	Succeeded  []*summary.DailySummary      `json:"succeeded"`
	Failed     []aggregation.ProjectFailure `json:"failed"`
}

// RunProjectAggregationAction aggregates a single project for one day.
// POST /api/v1/aggregation/projects/:id/run?date=YYYY-MM-DD
func RunProjectAggregationAction(ctx *cartridge.Context) error {
	projectID, err := strconv.Atoi(ctx.Params("id"))
	if err != nil || projectID <= 0 {
		return ctx.Status(http.StatusBadRequest).JSON(errorResponse{
			Error: "Invalid project id",
			Code:  "INVALID_PROJECT_ID",
		})
	}

	date, err := parseTargetDate(ctx.Query("date", ""))
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(errorResponse{
			Error: "Invalid date, expected YYYY-MM-DD or RFC3339",
			Code:  "INVALID_DATE",
		})
	}

	db := ctx.DB()
	if _, err := projects.GetProjectOrNotFound(db, uint(projectID)); err != nil {
		var notFound *projects.ProjectNotFoundError
		if errors.As(err, &notFound) {
			return ctx.Status(http.StatusNotFound).JSON(errorResponse{
				Error: err.Error(),
				Code:  "PROJECT_NOT_FOUND",
			})
		}
		ctx.Logger.Error("Failed to load project", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(errorResponse{
			Error: "Failed to load project",
			Code:  "INTERNAL_ERROR",
		})
	}

	agg := aggregation.NewAggregator(db, ctx.Logger, config.GetConfig())
	result, err := agg.Aggregate(context.Background(), uint(projectID), date)
	if err != nil {
		ctx.Logger.Error("Manual aggregation failed",
			slog.Int("project_id", projectID),
			slog.String("date", date.Format(dateLayout)),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(errorResponse{
			Error: err.Error(),
			Code:  "AGGREGATION_ERROR",
		})
	}

	return ctx.JSON(presentSummary(result))
}

// RunBatchAggregationAction aggregates all active projects for one day.
// POST /api/v1/aggregation/run?date=YYYY-MM-DD
func RunBatchAggregationAction(ctx *cartridge.Context) error {
	date, err := parseTargetDate(ctx.Query("date", ""))
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(errorResponse{
			Error: "Invalid date, expected YYYY-MM-DD or RFC3339",
			Code:  "INVALID_DATE",
		})
	}

	db := ctx.DB()
	cfg := config.GetConfig()
	agg := aggregation.NewAggregator(db, ctx.Logger, cfg)
	runner := aggregation.NewRunner(projects.NewRegistry(db), agg, ctx.Logger, cfg)

	report, err := runner.AggregateAll(context.Background(), date)
	if err != nil {
		ctx.Logger.Error("Batch aggregation failed", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(errorResponse{
			Error: err.Error(),
			Code:  "AGGREGATION_ERROR",
		})
	}

	succeeded := make([]*summary.DailySummary, len(report.Succeeded))
	for i, s := range report.Succeeded {
		succeeded[i] = presentSummary(s)
	}

	return ctx.JSON(BatchReportResponse{
		Date:       report.Date.Format(dateLayout),
		Aggregated: len(succeeded),
		Succeeded:  succeeded,
		Failed:     report.Failed,
	})
}

// parseTargetDate resolves the optional date parameter; empty means
// yesterday (UTC).
func parseTargetDate(raw string) (time.Time, error) {
	if raw == "" {
		return aggregation.YesterdayUTC(), nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// presentSummary expands stored ISO country codes into display names for the
// response payload. Stored rows keep the raw codes.
func presentSummary(s *summary.DailySummary) *summary.DailySummary {
	s.TopCountries = convertCountryList(s.TopCountries)
	return s
}

func convertCountryList(items summary.TopList) summary.TopList {
	if len(items) == 0 {
		return summary.TopList{}
	}

	caser := cases.Upper(language.AmericanEnglish)
	countries := gountries.New()

	result := make(summary.TopList, len(items))
	for i, item := range items {
		if item.Name == events.UnknownCountry {
			result[i] = summary.TopItem{Name: "Unknown", Count: item.Count}
			continue
		}
		country, err := countries.FindCountryByAlpha(item.Name)
		if err != nil {
			result[i] = summary.TopItem{Name: caser.String(item.Name), Count: item.Count}
			continue
		}
		result[i] = summary.TopItem{Name: country.Name.Common, Count: item.Count}
	}
	return result
}
