package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/core/guardian"
	"github.com/trezcool/kelasi/core/school"
	"github.com/trezcool/kelasi/core/student"
)

// Store hands out repositories bound either to the database or to a transaction.
type Store struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
	tx  *sqlx.Tx
	sb  squirrel.StatementBuilderType
}

var _ student.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db, sb: statementBuilder(db.DriverName())}
}

func statementBuilder(driverName string) squirrel.StatementBuilderType {
	if sqlx.BindType(driverName) == sqlx.DOLLAR {
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	}
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

func (s *Store) base() baseRepository {
	return baseRepository{ext: s.ext, sb: s.sb, inTx: s.tx != nil}
}

func (s *Store) Schools() school.Repository { return &schoolRepository{s.base()} }
func (s *Store) Students() student.Repository { return &studentRepository{s.base()} }
func (s *Store) Guardians() guardian.Repository { return &guardianRepository{s.base()} }
func (s *Store) Classes() classroom.Repository { return &classRepository{s.base()} }
func (s *Store) AuditLogs() *AuditLogRepository { return &AuditLogRepository{s.base()} }

// WithinTx runs `fn` in a transaction. Called on a Store already bound to a transaction, it joins it.
func (s *Store) WithinTx(ctx context.Context, fn func(tx student.Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(&Store{db: s.db, ext: tx, tx: tx, sb: s.sb}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

type baseRepository struct {
	ext  sqlx.ExtContext
	sb   squirrel.StatementBuilderType
	inTx bool
}

func (r baseRepository) get(ctx context.Context, dest interface{}, q squirrel.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, r.ext, dest, query, args...)
}

func (r baseRepository) selectAll(ctx context.Context, dest interface{}, q squirrel.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, r.ext, dest, query, args...)
}

func (r baseRepository) exec(ctx context.Context, q squirrel.Sqlizer) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := r.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// insert runs an INSERT ... RETURNING id.
func (r baseRepository) insert(ctx context.Context, q squirrel.InsertBuilder) (int, error) {
	var id int
	err := r.get(ctx, &id, q.Suffix("RETURNING id"))
	return id, err
}

// savepoint runs `fn` behind a savepoint when inside a transaction, so that a failing statement
// (a unique violation on PostgreSQL) does not abort the whole transaction.
func (r baseRepository) savepoint(ctx context.Context, name string, fn func() error) error {
	if !r.inTx {
		return fn()
	}
	if _, err := r.ext.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return errors.Wrap(err, "creating savepoint")
	}
	if err := fn(); err != nil {
		if _, rbErr := r.ext.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Wrapf(err, "rolling back to savepoint: %v", rbErr)
		}
		return err
	}
	_, err := r.ext.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return errors.Wrap(err, "releasing savepoint")
}
