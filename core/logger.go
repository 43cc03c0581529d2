package core

import "context"

// Logger is any service that can log messages.
// args may carry an error, a map[string]interface{} of extra fields and an Actor.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies the authenticated staff member performing an operation inside a school.
type Actor struct {
	ID       int
	SchoolID int
	Username string
	Email    string
}

// AuditLogger records who did what. Recording is best-effort: callers log failures and move on.
type AuditLogger interface {
	Record(ctx context.Context, schoolID, actorID int, action, description string) error
}

// Audit actions
const (
	ActionCreateStudent = "CREATE_STUDENT"
	ActionUpdateStudent = "UPDATE_STUDENT"
	ActionEnrollStudent = "ENROLL_STUDENT"
	ActionCreateClass   = "CREATE_CLASS"
)
