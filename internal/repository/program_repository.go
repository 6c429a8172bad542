// Package repository contains data access logic separated from HTTP handlers.
// This file defines the program repository. A Program is an event schedule
// owned by one user; its share token and shared_at columns are written only
// by SetShareToken.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/program-planner/internal/model"
)

const programColumns = `id, owner_id, title, description, date, capacity, share_token, shared_at, created_at, updated_at`

// ProgramRepo encapsulates all database queries related to programs.
type ProgramRepo struct {
	db DBTX
}

// NewProgramRepo constructs a ProgramRepo with the provided DB handle.
func NewProgramRepo(db DBTX) *ProgramRepo {
	return &ProgramRepo{db: db}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *ProgramRepo) WithTx(tx *sql.Tx) *ProgramRepo {
	return &ProgramRepo{db: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(row rowScanner) (*model.Program, error) {
	var (
		p                            model.Program
		date, sharedAt, created, upd dbTime
		capacity                     sql.NullInt64
		token                        sql.NullString
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &date, &capacity, &token, &sharedAt, &created, &upd); err != nil {
		return nil, err
	}
	p.Date = date.Time
	if capacity.Valid {
		c := uint32(capacity.Int64)
		p.Capacity = &c
	}
	p.ShareToken = token.String
	p.SharedAt = sharedAt.ptr()
	p.CreatedAt = created.Time
	p.UpdatedAt = upd.Time
	return &p, nil
}

func nullCapacity(c *uint32) any {
	if c == nil {
		return nil
	}
	return int64(*c)
}

// Create inserts a new program.  OwnerID, Title, Date, CreatedAt and
// UpdatedAt must be set; the generated ID is written back to p.
func (r *ProgramRepo) Create(ctx context.Context, p *model.Program) error {
	const q = `INSERT INTO programs (owner_id, title, description, date, capacity, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		p.OwnerID, p.Title, p.Description, dateValue(p.Date), nullCapacity(p.Capacity),
		timestamp(p.CreatedAt), timestamp(p.UpdatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID retrieves a program by its ID regardless of owner.  It returns
// ErrProgramNotFound when no row is found.
func (r *ProgramRepo) GetByID(ctx context.Context, id uint64) (*model.Program, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+programColumns+` FROM programs WHERE id = ?`, id)
	p, err := scanProgram(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetByShareToken retrieves a shared program by its public token.
func (r *ProgramRepo) GetByShareToken(ctx context.Context, token string) (*model.Program, error) {
	if token == "" {
		return nil, ErrProgramNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+programColumns+` FROM programs WHERE share_token = ?`, token)
	p, err := scanProgram(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListByOwner returns the owner's programs, newest first.
func (r *ProgramRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Program, error) {
	return r.list(ctx, `SELECT `+programColumns+` FROM programs WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
}

// ListAll returns every program, newest first.  Used for administrators.
func (r *ProgramRepo) ListAll(ctx context.Context) ([]model.Program, error) {
	return r.list(ctx, `SELECT `+programColumns+` FROM programs ORDER BY created_at DESC, id DESC`)
}

func (r *ProgramRepo) list(ctx context.Context, q string, args ...any) ([]model.Program, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the editable fields (title, description, date, capacity)
// and updated_at.  Share state is never touched here.  Returns
// ErrProgramNotFound when the row does not exist.
func (r *ProgramRepo) Update(ctx context.Context, p *model.Program) error {
	const q = `UPDATE programs
	           SET title = ?, description = ?, date = ?, capacity = ?, updated_at = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		p.Title, p.Description, dateValue(p.Date), nullCapacity(p.Capacity), timestamp(p.UpdatedAt), p.ID)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when values are unchanged, so
	// confirm existence before reporting not found.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// SetShareToken stores token and sharedAt on a program that has no token
// yet.  It returns false when the program already carries a token (a
// concurrent share won) and ErrDuplicate when token is already used by
// another program.
func (r *ProgramRepo) SetShareToken(ctx context.Context, id uint64, token string, sharedAt time.Time) (bool, error) {
	const q = `UPDATE programs
	           SET share_token = ?, shared_at = ?, updated_at = ?
	           WHERE id = ? AND share_token IS NULL`
	res, err := r.db.ExecContext(ctx, q, token, timestamp(sharedAt), timestamp(sharedAt), id)
	switch {
	case isDuplicate(err):
		return false, ErrDuplicate
	case isStaleSnapshot(err):
		// SQLite reports a share committed by another connection this
		// way; MySQL re-reads the row and matches nothing.
		return false, nil
	case err != nil:
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ShareTokenExists reports whether any program already uses token.
func (r *ProgramRepo) ShareTokenExists(ctx context.Context, token string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM programs WHERE share_token = ? LIMIT 1`, token).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a program and all of its items.  Items are deleted
// explicitly so the cascade does not depend on engine foreign key
// support; run it inside a transaction.
func (r *ProgramRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM program_items WHERE program_id = ?`, id); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProgramNotFound
	}
	return nil
}
