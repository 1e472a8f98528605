package aggregation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/aggregation"
	"sitepulse/internal/projects"
	"sitepulse/internal/summary"
	"sitepulse/internal/testsupport"
)

type stubLister struct {
	ids []uint
	err error
}

func (s *stubLister) ActiveProjectIDs(ctx context.Context) ([]uint, error) {
	return s.ids, s.err
}

type stubAggregator struct {
	failFor map[uint]error
}

func (s *stubAggregator) Aggregate(ctx context.Context, projectID uint, date time.Time) (*summary.DailySummary, error) {
	if err, ok := s.failFor[projectID]; ok {
		return nil, err
	}
	return &summary.DailySummary{ProjectID: projectID, Date: date}, nil
}

func TestAggregateAllIsolatesFailures(t *testing.T) {
	logger := testsupport.GetLogger()
	lister := &stubLister{ids: []uint{1, 2, 3}}
	agg := &stubAggregator{failFor: map[uint]error{
		2: errors.New("raw data unavailable"),
	}}

	runner := aggregation.NewRunner(lister, agg, logger, testConfig())
	report, err := runner.AggregateAll(context.Background(), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, report.Succeeded, 2)
	assert.Equal(t, uint(1), report.Succeeded[0].ProjectID)
	assert.Equal(t, uint(3), report.Succeeded[1].ProjectID)

	require.Len(t, report.Failed, 1)
	assert.Equal(t, uint(2), report.Failed[0].ProjectID)
	assert.Contains(t, report.Failed[0].Error, "raw data unavailable")
}

func TestAggregateAllNormalizesDate(t *testing.T) {
	logger := testsupport.GetLogger()
	lister := &stubLister{ids: []uint{1}}
	agg := &stubAggregator{}

	runner := aggregation.NewRunner(lister, agg, logger, testConfig())
	report, err := runner.AggregateAll(context.Background(),
		time.Date(2025, 4, 1, 18, 30, 0, 0, time.FixedZone("EST", -5*3600)))
	require.NoError(t, err)

	assert.True(t, report.Date.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestAggregateAllEmptyProjectList(t *testing.T) {
	logger := testsupport.GetLogger()
	runner := aggregation.NewRunner(&stubLister{}, &stubAggregator{}, logger, testConfig())

	report, err := runner.AggregateAll(context.Background(), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, report.Succeeded)
	assert.Empty(t, report.Failed)
}

func TestAggregateAllListerError(t *testing.T) {
	logger := testsupport.GetLogger()
	lister := &stubLister{err: errors.New("registry unavailable")}
	runner := aggregation.NewRunner(lister, &stubAggregator{}, logger, testConfig())

	_, err := runner.AggregateAll(context.Background(), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry unavailable")
}

func TestAggregateAllEndToEnd(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	active := testsupport.CreateTestProject(t, db, "Active", "active.example.com", true)
	other := testsupport.CreateTestProject(t, db, "Other", "other.example.com", true)
	testsupport.CreateTestProject(t, db, "Paused", "paused.example.com", false)

	day := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	testsupport.CreatePageView(t, db, active.ID, "s1", "https://active.example.com/", day.Add(time.Hour))
	testsupport.CreatePageView(t, db, active.ID, "s1", "https://active.example.com/about", day.Add(2*time.Hour))
	testsupport.CreatePageView(t, db, other.ID, "s9", "https://other.example.com/", day.Add(3*time.Hour))

	cfg := testConfig()
	runner := aggregation.NewRunner(
		projects.NewRegistry(db),
		aggregation.NewAggregator(db, logger, cfg),
		logger, cfg)

	report, err := runner.AggregateAll(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, report.Succeeded, 2)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 2, report.Succeeded[0].Pageviews)
	assert.Equal(t, 1, report.Succeeded[1].Pageviews)

	// A second run replaces rows in place instead of duplicating them
	report, err = runner.AggregateAll(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, report.Succeeded, 2)

	var count int64
	require.NoError(t, db.Model(&summary.DailySummary{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
