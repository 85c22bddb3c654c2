package db

import (
	"database/sql"
	stderrors "errors"

	"lms-module/errors"

	"github.com/lib/pq"
)

// Postgres error codes the stores react to
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Store is the Postgres-backed implementation of every repository the
// services depend on.
type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store {
	return &Store{db: conn}
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == uniqueViolation
}

func isNoRows(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows)
}

// persistenceError wraps a driver failure on a write path.
func persistenceError(msg string, err error) error {
	return errors.E(errors.Persistence, msg, err)
}

func internalError(msg string, err error) error {
	return errors.E(errors.Internal, msg, err)
}
