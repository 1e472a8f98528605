package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/summary"
)

func TestParseTargetDate(t *testing.T) {
	t.Run("empty defaults to yesterday utc", func(t *testing.T) {
		date, err := parseTargetDate("")
		require.NoError(t, err)

		expected := time.Now().UTC().AddDate(0, 0, -1)
		assert.Equal(t, expected.Year(), date.Year())
		assert.Equal(t, expected.YearDay(), date.YearDay())
		assert.Zero(t, date.Hour())
		assert.Zero(t, date.Minute())
		assert.Equal(t, time.UTC, date.Location())
	})

	t.Run("plain date", func(t *testing.T) {
		date, err := parseTargetDate("2025-01-15")
		require.NoError(t, err)
		assert.True(t, date.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("rfc3339 with offset", func(t *testing.T) {
		date, err := parseTargetDate("2025-01-15T18:00:00-05:00")
		require.NoError(t, err)
		assert.Equal(t, 2025, date.Year())
		assert.Equal(t, time.January, date.Month())
		assert.Equal(t, 15, date.Day())
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseTargetDate("15/01/2025")
		require.Error(t, err)
	})
}

func TestConvertCountryList(t *testing.T) {
	converted := convertCountryList(summary.TopList{
		{Name: "US", Count: 42},
		{Name: "DE", Count: 17},
		{Name: "ZZ", Count: 5},
		{Name: "XX", Count: 1},
	})

	require.Len(t, converted, 4)
	assert.Equal(t, summary.TopItem{Name: "United States", Count: 42}, converted[0])
	assert.Equal(t, summary.TopItem{Name: "Germany", Count: 17}, converted[1])
	assert.Equal(t, summary.TopItem{Name: "Unknown", Count: 5}, converted[2])
	// Unmappable codes pass through uppercased rather than dropping the row
	assert.Equal(t, summary.TopItem{Name: "XX", Count: 1}, converted[3])
}

func TestConvertCountryListEmpty(t *testing.T) {
	assert.Empty(t, convertCountryList(nil))
	assert.Empty(t, convertCountryList(summary.TopList{}))
}
