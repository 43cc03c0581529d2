package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/core/guardian"
	"github.com/trezcool/kelasi/core/school"
	"github.com/trezcool/kelasi/core/student"
)

type (
	// DB keeps every table in memory. Transactions run one at a time on a copy of the tables,
	// which replaces the live tables on commit.
	DB struct {
		mu       sync.RWMutex // guards live & failures
		txMu     sync.Mutex   // one writer at a time
		live     *tables
		failures map[string]failure
	}

	failure struct {
		err   error
		times int
	}

	tables struct {
		pkCount     int
		schools     map[int]school.School
		classes     map[int]classroom.Class
		students    map[int]student.Student
		enrollments map[int]student.Enrollment
		guardians   map[int]guardian.Guardian
		links       map[int]guardian.Link
		auditLogs   []AuditEntry
	}

	// Counts is the number of rows per table.
	Counts struct {
		Schools, Classes, Students, Enrollments, Guardians, Links, AuditLogs int
	}
)

func Open() *DB {
	return &DB{
		live: &tables{
			schools:     make(map[int]school.School),
			classes:     make(map[int]classroom.Class),
			students:    make(map[int]student.Student),
			enrollments: make(map[int]student.Enrollment),
			guardians:   make(map[int]guardian.Guardian),
			links:       make(map[int]guardian.Link),
		},
		failures: make(map[string]failure),
	}
}

func (t *tables) nextPK() int {
	t.pkCount++
	return t.pkCount
}

func (t *tables) clone() *tables {
	c := &tables{
		pkCount:     t.pkCount,
		schools:     make(map[int]school.School, len(t.schools)),
		classes:     make(map[int]classroom.Class, len(t.classes)),
		students:    make(map[int]student.Student, len(t.students)),
		enrollments: make(map[int]student.Enrollment, len(t.enrollments)),
		guardians:   make(map[int]guardian.Guardian, len(t.guardians)),
		links:       make(map[int]guardian.Link, len(t.links)),
		auditLogs:   append([]AuditEntry(nil), t.auditLogs...),
	}
	for k, v := range t.schools {
		c.schools[k] = v
	}
	for k, v := range t.classes {
		c.classes[k] = v
	}
	for k, v := range t.students {
		c.students[k] = v
	}
	for k, v := range t.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range t.guardians {
		c.guardians[k] = v
	}
	for k, v := range t.links {
		c.links[k] = v
	}
	return c
}

// FailNext makes the next call to the repository method `op` (eg. "CreateEnrollment") return `err`.
func (db *DB) FailNext(op string, err error) {
	db.FailTimes(op, 1, err)
}

// FailTimes makes the next `n` calls to the repository method `op` return `err`.
func (db *DB) FailTimes(op string, n int, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failures[op] = failure{err: err, times: n}
}

func (db *DB) failure(op string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	f, ok := db.failures[op]
	if !ok {
		return nil
	}
	if f.times--; f.times <= 0 {
		delete(db.failures, op)
	} else {
		db.failures[op] = f
	}
	return f.err
}

func (db *DB) Counts() Counts {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t := db.live
	return Counts{
		Schools:     len(t.schools),
		Classes:     len(t.classes),
		Students:    len(t.students),
		Enrollments: len(t.enrollments),
		Guardians:   len(t.guardians),
		Links:       len(t.links),
		AuditLogs:   len(t.auditLogs),
	}
}

// Store is the in-memory student.Store.
type Store struct {
	db *DB
	tx *tables // set inside a transaction
}

var _ student.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) Schools() school.Repository { return &schoolRepository{s} }
func (s *Store) Students() student.Repository { return &studentRepository{s} }
func (s *Store) Guardians() guardian.Repository { return &guardianRepository{s} }
func (s *Store) Classes() classroom.Repository { return &classRepository{s} }
func (s *Store) AuditLogs() *AuditLogRepository { return &AuditLogRepository{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx student.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.RLock()
	work := s.db.live.clone()
	s.db.mu.RUnlock()

	if err := fn(&Store{db: s.db, tx: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mu.Lock()
	s.db.live = work
	s.db.mu.Unlock()
	return nil
}

// read runs `fn` on the transaction tables, or on the live ones under a read lock.
func (s *Store) read(fn func(t *tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(s.db.live)
}

// write runs `fn` on the transaction tables; outside of one it behaves as a single statement transaction.
func (s *Store) write(ctx context.Context, op string, fn func(t *tables) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.failure(op); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.WithinTx(ctx, func(tx student.Store) error {
		return fn(tx.(*Store).tx)
	})
}
