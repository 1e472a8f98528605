package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/events"
	"sitepulse/internal/testsupport"
)

func TestEventsInWindowIsHalfOpen(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	project := testsupport.CreateTestProject(t, db, "Window", "window.example.com", true)
	other := testsupport.CreateTestProject(t, db, "Other", "other.example.com", true)

	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	testsupport.CreatePageView(t, db, project.ID, "s0", "/before", start.Add(-time.Second))
	testsupport.CreatePageView(t, db, project.ID, "s1", "/first", start)
	testsupport.CreatePageView(t, db, project.ID, "s2", "/last", end.Add(-time.Second))
	testsupport.CreatePageView(t, db, project.ID, "s3", "/after", end)
	testsupport.CreatePageView(t, db, other.ID, "s9", "/other-project", start.Add(time.Hour))

	rows, err := events.EventsInWindow(db, project.ID, start, end)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	// Ordered by timestamp: the window start is included, the end excluded
	assert.Equal(t, "/first", rows[0].URL)
	assert.Equal(t, "/last", rows[1].URL)
}

func TestSessionsInWindow(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	project := testsupport.CreateTestProject(t, db, "Window", "window.example.com", true)

	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	testsupport.CreateSession(t, db, project.ID, "before", start.Add(-time.Minute), 60*time.Second, 1)
	testsupport.CreateSession(t, db, project.ID, "inside", start.Add(time.Hour), 90*time.Second, 2)
	testsupport.CreateSession(t, db, project.ID, "open", start.Add(2*time.Hour), 0, 1)
	testsupport.CreateSession(t, db, project.ID, "at-end", end, 30*time.Second, 1)

	rows, err := events.SessionsInWindow(db, project.ID, start, end)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "inside", rows[0].SessionID)
	assert.Equal(t, "open", rows[1].SessionID)

	duration, ended := rows[0].DurationSeconds()
	assert.True(t, ended)
	assert.InDelta(t, 90.0, duration, 0.001)

	_, ended = rows[1].DurationSeconds()
	assert.False(t, ended, "open sessions have no duration yet")
}
