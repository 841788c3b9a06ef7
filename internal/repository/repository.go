package repository

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"devmatch/pkg/metrics"
)

// ErrNoRowsAffected is returned by guarded updates that matched nothing,
// either because the row is gone or because a version check failed.
var ErrNoRowsAffected = errors.New("no rows affected")

// IsUniqueViolation reports whether err is a Postgres unique-constraint error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func observe(operation, table string, start time.Time) {
	metrics.RecordDBQueryDuration(operation, table, time.Since(start))
}
