package summary_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/summary"
	"sitepulse/internal/testsupport"
)

func floatPtr(v float64) *float64 { return &v }

func TestUpsertInsertsThenReplaces(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	project := testsupport.CreateTestProject(t, db, "Docs", "docs.example.com", true)

	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	first := &summary.DailySummary{
		ProjectID:      project.ID,
		Date:           day,
		Pageviews:      10,
		UniqueVisitors: 4,
		Sessions:       5,
		BounceRate:     floatPtr(40.0),
		TopPages: summary.TopList{
			{Name: "https://docs.example.com/", Count: 7},
			{Name: "https://docs.example.com/api", Count: 3},
		},
	}
	require.NoError(t, summary.Upsert(logger, db, first))

	stored, err := summary.GetByProjectAndDate(db, project.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Pageviews)
	assert.Equal(t, 4, stored.UniqueVisitors)
	require.NotNil(t, stored.BounceRate)
	assert.InDelta(t, 40.0, *stored.BounceRate, 0.001)
	require.Len(t, stored.TopPages, 2)
	assert.Equal(t, "https://docs.example.com/", stored.TopPages[0].Name)
	createdAt := stored.CreatedAt

	// Overwrite with a full recomputation, including fields going back to zero
	second := &summary.DailySummary{
		ProjectID:      project.ID,
		Date:           day,
		Pageviews:      25,
		UniqueVisitors: 9,
		Sessions:       0,
		BounceRate:     nil,
		TopPages: summary.TopList{
			{Name: "https://docs.example.com/guide", Count: 25},
		},
	}
	require.NoError(t, summary.Upsert(logger, db, second))

	stored, err = summary.GetByProjectAndDate(db, project.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 25, stored.Pageviews)
	assert.Equal(t, 9, stored.UniqueVisitors)
	assert.Zero(t, stored.Sessions)
	assert.Nil(t, stored.BounceRate)
	require.Len(t, stored.TopPages, 1)
	assert.Equal(t, "https://docs.example.com/guide", stored.TopPages[0].Name)

	assert.True(t, stored.CreatedAt.Equal(createdAt), "created_at must survive overwrites")
	assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))

	var count int64
	require.NoError(t, db.Model(&summary.DailySummary{}).
		Where("project_id = ?", project.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertKeysOnProjectAndDate(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	projectA := testsupport.CreateTestProject(t, db, "A", "a.example.com", true)
	projectB := testsupport.CreateTestProject(t, db, "B", "b.example.com", true)

	day1 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)

	for _, s := range []*summary.DailySummary{
		{ProjectID: projectA.ID, Date: day1, Pageviews: 1},
		{ProjectID: projectA.ID, Date: day2, Pageviews: 2},
		{ProjectID: projectB.ID, Date: day1, Pageviews: 3},
	} {
		require.NoError(t, summary.Upsert(logger, db, s))
	}

	var count int64
	require.NoError(t, db.Model(&summary.DailySummary{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	stored, err := summary.GetByProjectAndDate(db, projectB.ID, day1)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Pageviews)
}

func TestGetByProjectAndDateMissing(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	_, err := summary.GetByProjectAndDate(db, 999, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
}

func TestTopListRoundTripsThroughColumn(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	project := testsupport.CreateTestProject(t, db, "RT", "rt.example.com", true)

	day := time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)
	s := &summary.DailySummary{
		ProjectID: project.ID,
		Date:      day,
		TopCountries: summary.TopList{
			{Name: "US", Count: 12},
			{Name: "DE", Count: 5},
		},
	}
	require.NoError(t, summary.Upsert(logger, db, s))

	stored, err := summary.GetByProjectAndDate(db, project.ID, day)
	require.NoError(t, err)
	assert.Equal(t, s.TopCountries, stored.TopCountries)
	assert.Empty(t, stored.TopPages)
}
