package sqlxrepos

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
)

type AuditEntry struct {
	ID          string    `db:"id" json:"id"`
	SchoolID    int       `db:"school_id" json:"school_id"`
	ActorID     int       `db:"actor_id" json:"actor_id"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AuditLogRepository stores the audit trail. It writes outside of any business transaction:
// entries are recorded once the operation committed.
type AuditLogRepository struct {
	baseRepository
}

var _ core.AuditLogger = (*AuditLogRepository)(nil)

func (repo *AuditLogRepository) Record(ctx context.Context, schoolID, actorID int, action, description string) error {
	_, err := repo.exec(ctx, repo.sb.Insert("audit_logs").
		Columns("id", "school_id", "actor_id", "action", "description", "created_at").
		Values(uuid.New().String(), schoolID, actorID, action, description, core.NowFunc().UTC()))
	return errors.Wrap(err, "inserting audit log")
}

// Recent returns the latest `limit` entries of the school, newest first.
func (repo *AuditLogRepository) Recent(ctx context.Context, schoolID int, limit uint64) ([]AuditEntry, error) {
	var entries []AuditEntry
	q := repo.sb.Select("id", "school_id", "actor_id", "action", "description", "created_at").
		From("audit_logs").
		Where(squirrel.Eq{"school_id": schoolID}).
		OrderBy("created_at DESC").
		Limit(limit)
	if err := repo.selectAll(ctx, &entries, q); err != nil {
		return nil, errors.Wrap(err, "selecting audit logs")
	}
	for i := range entries {
		entries[i].CreatedAt = entries[i].CreatedAt.UTC()
	}
	return entries, nil
}
