package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/program-planner/internal/database"
)

// Store bundles the program and item repositories so that a request can
// run every read and write of one logical operation in a single
// transaction.
type Store struct {
	db       *sql.DB
	Programs *ProgramRepo
	Items    *ItemRepo
}

// NewStore constructs a Store bound to the connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, Programs: NewProgramRepo(db), Items: NewItemRepo(db)}
}

// InTx runs fn with repositories bound to a fresh transaction.  The
// transaction commits when fn returns nil and rolls back otherwise.  fn
// must not call InTx again.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&Store{db: s.db, Programs: s.Programs.WithTx(tx), Items: s.Items.WithTx(tx)})
	})
}
