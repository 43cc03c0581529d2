// Package testutil holds the helpers shared by the test suites.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap/zaptest"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/core/school"
	"github.com/trezcool/kelasi/fs"
	"github.com/trezcool/kelasi/services/logger"
	"github.com/trezcool/kelasi/storage/database"
)

// NewConfig returns the configuration used by tests: SQLite engine, no Redis, no Rollbar.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Kelasi",
		SecretKey:        "test-secret",
		DefaultFromEmail: "Kelasi <noreply@kelasi.test>",
		FrontendBaseURL:  "http://kelasi.test",
		Server:           core.ServerConfig{DisableRequestLogs: true, JWTExpirationDelta: time.Hour},
		Database:         core.DatabaseConfig{Engine: database.EngineSQLite},
		Redis:            core.RedisConfig{Disabled: true, TTL: time.Minute},
		Enrollment: core.EnrollmentConfig{
			MatriculePrefix:   "KEL",
			MatriculeAttempts: 5,
			TxTimeout:         10 * time.Second,
		},
	}
}

// NewLogger returns a logger writing through the test log.
func NewLogger(t testing.TB) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(zaptest.NewLogger(t).Sugar(), NewConfig())
}

// ParseTemplates loads the embedded email templates in strict mode.
func ParseTemplates(t testing.TB) {
	conf := NewConfig()
	core.ParseEmailTemplates(appfs.FS, appfs.TemplatesDir, conf.FrontendBaseURL, true /* strict */, NewLogger(t))
}

// PrepareDB opens a migrated SQLite database in a temporary directory, closed when the test ends.
func PrepareDB(t testing.TB) *sqlx.DB {
	t.Helper()

	conf := NewConfig()
	conf.Database.Name = filepath.Join(t.TempDir(), "kelasi.db")
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateSchool(t testing.TB, repo school.Repository, name, prefix string) school.School {
	t.Helper()
	sch, err := repo.CreateSchool(context.Background(), school.School{
		Name:            name,
		MatriculePrefix: prefix,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

func CreateClass(
	t testing.TB,
	repo classroom.Repository,
	schoolID int,
	label, schoolYear string,
	maxCapacity, currentOccupancy int,
	isActive ...bool,
) classroom.Class {
	t.Helper()
	active := true
	if len(isActive) > 0 {
		active = isActive[0]
	}
	class, err := repo.CreateClass(context.Background(), classroom.Class{
		SchoolID:         schoolID,
		Label:            label,
		Level:            "Primary",
		SchoolYear:       schoolYear,
		MaxCapacity:      maxCapacity,
		CurrentOccupancy: currentOccupancy,
		IsActive:         active,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return class
}
