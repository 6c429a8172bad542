package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/program-planner/internal/model"
)

const itemColumns = `id, program_id, title, description, start_time, end_time, position, created_at, updated_at`

// ItemRepo provides persistence for program items.  Every lookup is
// scoped by program so items are only reachable through their program.
type ItemRepo struct {
	db DBTX
}

// NewItemRepo constructs an ItemRepo with the given DB handle.
func NewItemRepo(db DBTX) *ItemRepo {
	return &ItemRepo{db: db}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *ItemRepo) WithTx(tx *sql.Tx) *ItemRepo {
	return &ItemRepo{db: tx}
}

func scanItem(row rowScanner) (*model.ProgramItem, error) {
	var (
		it                       model.ProgramItem
		start, end, created, upd dbTime
	)
	if err := row.Scan(&it.ID, &it.ProgramID, &it.Title, &it.Description, &start, &end, &it.Position, &created, &upd); err != nil {
		return nil, err
	}
	it.StartTime = start.Time
	it.EndTime = end.Time
	it.CreatedAt = created.Time
	it.UpdatedAt = upd.Time
	return &it, nil
}

// ListByProgram returns all items of a program ordered by position.
func (r *ItemRepo) ListByProgram(ctx context.Context, programID uint64) ([]model.ProgramItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM program_items WHERE program_id = ? ORDER BY position ASC, id ASC`, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ProgramItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByPrograms loads the items of several programs in one query, keyed
// by program ID and ordered by position.  Programs without items are
// absent from the map.
func (r *ItemRepo) ListByPrograms(ctx context.Context, programIDs []uint64) (map[uint64][]model.ProgramItem, error) {
	out := make(map[uint64][]model.ProgramItem, len(programIDs))
	if len(programIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(programIDs)), ",")
	args := make([]any, 0, len(programIDs))
	for _, id := range programIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM program_items WHERE program_id IN (`+placeholders+`) ORDER BY program_id, position ASC, id ASC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.ProgramID] = append(out[it.ProgramID], *it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByIDAndProgram retrieves an item only if it belongs to programID.
func (r *ItemRepo) GetByIDAndProgram(ctx context.Context, id, programID uint64) (*model.ProgramItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM program_items WHERE id = ? AND program_id = ?`, id, programID)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return it, nil
}

// MaxPosition returns the highest position used in a program, or nil
// when the program has no items.
func (r *ItemRepo) MaxPosition(ctx context.Context, programID uint64) (*uint32, error) {
	var maxPos sql.NullInt64
	if err := r.db.QueryRowContext(ctx,
		`SELECT MAX(position) FROM program_items WHERE program_id = ?`, programID).Scan(&maxPos); err != nil {
		return nil, err
	}
	if !maxPos.Valid {
		return nil, nil
	}
	v := uint32(maxPos.Int64)
	return &v, nil
}

// Create inserts an item and writes the generated ID back.  A position
// already used in the program yields ErrDuplicate.
func (r *ItemRepo) Create(ctx context.Context, it *model.ProgramItem) error {
	const q = `INSERT INTO program_items (program_id, title, description, start_time, end_time, position, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		it.ProgramID, it.Title, it.Description, timestamp(it.StartTime), timestamp(it.EndTime), it.Position,
		timestamp(it.CreatedAt), timestamp(it.UpdatedAt))
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

// Update writes every mutable column of an item.  A position already
// used by a sibling yields ErrDuplicate.
func (r *ItemRepo) Update(ctx context.Context, it *model.ProgramItem) error {
	const q = `UPDATE program_items
	           SET title = ?, description = ?, start_time = ?, end_time = ?, position = ?, updated_at = ?
	           WHERE id = ? AND program_id = ?`
	_, err := r.db.ExecContext(ctx, q,
		it.Title, it.Description, timestamp(it.StartTime), timestamp(it.EndTime), it.Position, timestamp(it.UpdatedAt),
		it.ID, it.ProgramID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Delete removes one item of a program.  Positions of the remaining
// items are left as they are.
func (r *ItemRepo) Delete(ctx context.Context, id, programID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM program_items WHERE id = ? AND program_id = ?`, id, programID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}
