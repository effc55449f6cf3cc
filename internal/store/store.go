// Package store is the Store component from spec.md §4.1: durable
// persistence with transactional semantics and typed repositories per
// entity. Grounded on internal/repository/*.go's *sql.DB-plus-
// parameterized-query style; the teacher split one repository per
// entity, which this package keeps, collapsed under one Store so the
// orchestrator depends on a single capability per spec.md's component
// contracts.
package store

import (
	"database/sql"

	appErrors "github.com/relaytide/campaign-platform/internal/errors"
)

// Store wraps the Postgres connection pool and exposes every
// repository method the rest of the platform depends on.
type Store struct {
	DB *sql.DB
}

// New constructs a Store over an already-opened connection pool.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

func wrapStorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return appErrors.NewStorageError(op, err)
}
