package database

import (
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const pgUniqueViolation = "23505"

// UniqueKey names a unique constraint the way each driver reports it.
type UniqueKey struct {
	Constraint string // PostgreSQL constraint or unique index name
	Columns    string // SQLite "table.col, table.col" list
}

// IsUniqueViolation reports whether `err` comes from the `key` unique constraint.
func IsUniqueViolation(err error, key UniqueKey) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation && pqErr.Constraint == key.Constraint
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == key.Constraint
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		// "UNIQUE constraint failed: students.school_id, students.matricule"
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique && strings.HasSuffix(liteErr.Error(), ": "+key.Columns)
	}
	return false
}
