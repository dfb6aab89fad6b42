package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vitrine/internal"
	"vitrine/internal/auth"
	"vitrine/internal/config"
	"vitrine/internal/database"
	"vitrine/internal/projects"
	"vitrine/internal/users"
	"vitrine/internal/visits"
)

func init() {
	if os.Getenv("VITRINE_ENV") == "" {
		os.Setenv("VITRINE_ENV", config.Test)
	}
}

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates a test database with all models migrated.
// Uses a named in-memory database with cache=shared so every connection
// within a test sees the same data. Calls within the same root test share
// one database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Subtests reuse the root test's database
	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

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

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	t.Helper()
	cfg := config.GetConfig()

	// SAFETY CHECK: Ensure we're in test environment
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set VITRINE_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	return NewTestDBManager(db), GetLogger()
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)
	CleanTables(db, tableNames)
}

// CleanTables cleans specific tables or all tables if none specified
func CleanTables(db *gorm.DB, tables []string) {
	if len(tables) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec(fmt.Sprintf("DELETE FROM %q", table))
		}
		return nil
	})
}

// CreateTestUser creates an admin with a bcrypt-hashed password, or returns the existing one.
func CreateTestUser(t *testing.T, db *gorm.DB, email, password string) users.User {
	t.Helper()

	var user users.User
	if db.Where("email = ?", email).First(&user).Error == nil {
		return user
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user = users.User{
		Email:             email,
		Name:              strings.SplitN(email, "@", 2)[0],
		EncryptedPassword: string(hashed),
		Role:              users.RoleAdmin,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreateTestProject inserts project, filling the required columns the caller left empty.
func CreateTestProject(t *testing.T, db *gorm.DB, project projects.Project) projects.Project {
	t.Helper()

	if project.Slug == "" {
		project.Slug = "project-" + uuid.NewString()[:8]
	}
	if project.Title == "" {
		project.Title = "Projeto " + project.Slug
	}
	if project.Description == "" {
		project.Description = "Descrição de " + project.Slug
	}
	if project.Category == "" {
		project.Category = "web"
	}
	require.NoError(t, db.Create(&project).Error)
	return project
}

// CreateTestVisit inserts visit as is. A zero CreatedAt becomes now.
func CreateTestVisit(t *testing.T, db *gorm.DB, visit visits.Visit) visits.Visit {
	t.Helper()

	if visit.Page == "" {
		visit.Page = "/"
	}
	require.NoError(t, db.Create(&visit).Error)
	return visit
}

// AuthHeader issues a token for user with the configured secret and returns it as a Bearer header value.
func AuthHeader(t *testing.T, user users.User) string {
	t.Helper()

	cfg := config.GetConfig()
	issuer := auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	token, err := issuer.Issue(&user)
	require.NoError(t, err)
	return "Bearer " + token
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

func newTestServer(t *testing.T, db *gorm.DB) *cartridge.Server {
	t.Helper()

	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = NewTestDBManager(db)
	// The API is consumed by server-side clients too
	cfg.EnableSecFetchSite = false

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)
	return srv
}

// CreateMinimalTestApp creates a test Fiber app with all routes
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	app, _ := CreateTestAppWithRecorder(t, db)
	return app
}

// CreateTestAppWithRecorder mounts all routes around a recorder without GeoIP or
// exclusions. Pending visits are flushed before the test database closes.
func CreateTestAppWithRecorder(t *testing.T, db *gorm.DB) (*fiber.App, *visits.Recorder) {
	t.Helper()

	srv := newTestServer(t, db)
	recorder := visits.NewRecorder(db, GetLogger())
	t.Cleanup(recorder.Wait)

	internal.MountRoutesWithRecorder(srv, recorder)
	return srv.App(), recorder
}
