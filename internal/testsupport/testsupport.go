package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/karloscodes/cartridge/cache"

	"sitepulse/internal/events"
	"sitepulse/internal/projects"
	"sitepulse/internal/summary"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// allModels returns all sitepulse models for migration
func allModels() []any {
	return []any{
		&cache.CacheRecord{},
		&projects.Project{},
		&events.Event{},
		&events.Session{},
		&summary.DailySummary{},
	}
}

// SetupTestDB creates a test database with all sitepulse models migrated.
// Uses a named in-memory database with cache=shared to allow multiple
// connections to share the same database within a test. Caches the database
// by test name so multiple calls within the same test return the same one.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	// Check cache first
	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	// Create a unique named in-memory database for each test
	// cache=shared allows multiple connections to the same database
	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	// Apply SQLite pragmas
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	// Auto-migrate models
	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	// Cache the database
	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	// Register cleanup
	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateTestProject creates a project in the database
func CreateTestProject(t *testing.T, db *gorm.DB, name, domain string, active bool) projects.Project {
	t.Helper()

	project := projects.Project{
		Name:      name,
		Domain:    domain,
		Active:    active,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&project).Error)
	return project
}

// CreatePageView creates a pageview event for testing
func CreatePageView(t *testing.T, db *gorm.DB, projectID uint, sessionID, url string, timestamp time.Time) {
	t.Helper()

	event := &events.Event{
		ProjectID:       projectID,
		SessionID:       sessionID,
		EventType:       events.EventTypePageView,
		URL:             url,
		Referrer:        "https://google.com",
		Country:         "US",
		City:            "Portland",
		Browser:         "Chrome",
		OperatingSystem: "Windows",
		DeviceType:      "desktop",
		Timestamp:       timestamp,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, db.Create(event).Error)
}

// CreatePageViewWith creates a pageview event with full control over
// dimension fields
func CreatePageViewWith(t *testing.T, db *gorm.DB, event events.Event) {
	t.Helper()

	if event.EventType == 0 {
		event.EventType = events.EventTypePageView
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	require.NoError(t, db.Create(&event).Error)
}

// CreateCustomEvent creates a custom event for testing
func CreateCustomEvent(t *testing.T, db *gorm.DB, projectID uint, sessionID, name string, timestamp time.Time) {
	t.Helper()

	event := &events.Event{
		ProjectID:       projectID,
		SessionID:       sessionID,
		EventType:       events.EventTypeCustomEvent,
		URL:             "https://example.com/page",
		Country:         "US",
		Browser:         "Chrome",
		OperatingSystem: "Windows",
		DeviceType:      "desktop",
		CustomEventName: name,
		Timestamp:       timestamp,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, db.Create(event).Error)
}

// CreateSession creates a session for testing. A zero duration leaves the
// session open (no end time).
func CreateSession(t *testing.T, db *gorm.DB, projectID uint, sessionID string, startedAt time.Time, duration time.Duration, pageviews int) {
	t.Helper()

	session := &events.Session{
		ProjectID:     projectID,
		SessionID:     sessionID,
		StartedAt:     startedAt,
		PageviewCount: pageviews,
		CreatedAt:     time.Now().UTC(),
	}
	if duration > 0 {
		endedAt := startedAt.Add(duration)
		session.EndedAt = &endedAt
	}
	require.NoError(t, db.Create(session).Error)
}
