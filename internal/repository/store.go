package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

const uniqueViolation = "23505"

// Option customises a SQL-backed repository.
type Option func(*sqlStore)

// WithQueryTimeout bounds every statement issued by the repository.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *sqlStore) {
		s.timeout = d
	}
}

type sqlStore struct {
	db      *sqlx.DB
	timeout time.Duration
	now     func() time.Time
}

func newSQLStore(db *sqlx.DB, opts []Option) sqlStore {
	s := sqlStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s sqlStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// validID filters identifiers that could never match a UUID primary key so
// lookups report absence instead of a driver cast error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
