package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kelasi/core"
)

type AuditEntry struct {
	ID          string
	SchoolID    int
	ActorID     int
	Action      string
	Description string
	CreatedAt   time.Time
}

type AuditLogRepository struct {
	s *Store
}

var _ core.AuditLogger = (*AuditLogRepository)(nil)

func (repo *AuditLogRepository) Record(ctx context.Context, schoolID, actorID int, action, description string) error {
	return repo.s.write(ctx, "Record", func(t *tables) error {
		t.auditLogs = append(t.auditLogs, AuditEntry{
			ID:          uuid.New().String(),
			SchoolID:    schoolID,
			ActorID:     actorID,
			Action:      action,
			Description: description,
			CreatedAt:   core.NowFunc().UTC(),
		})
		return nil
	})
}

// Recent returns the latest `limit` entries of the school, newest first.
func (repo *AuditLogRepository) Recent(_ context.Context, schoolID int, limit int) ([]AuditEntry, error) {
	var entries []AuditEntry
	err := repo.s.read(func(t *tables) error {
		for i := len(t.auditLogs) - 1; i >= 0 && len(entries) < limit; i-- {
			if t.auditLogs[i].SchoolID == schoolID {
				entries = append(entries, t.auditLogs[i])
			}
		}
		return nil
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, err
}
