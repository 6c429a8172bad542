package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/program-planner/internal/database"
	"github.com/iliyamo/program-planner/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repo.db")
	require.NoError(t, database.MigrateSQLite(path))
	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, db *sql.DB, email string) uint64 {
	t.Helper()
	id, err := NewUserRepo(db).Create(context.Background(), email, "password", model.RoleUser, 4)
	require.NoError(t, err)
	return id
}

func seedProgram(t *testing.T, store *Store, ownerID uint64) *model.Program {
	t.Helper()
	p := &model.Program{
		OwnerID:   ownerID,
		Title:     "Summit",
		Date:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt: base,
		UpdatedAt: base,
	}
	require.NoError(t, store.Programs.Create(context.Background(), p))
	return p
}

func newItem(programID uint64, pos uint32, startHour int) *model.ProgramItem {
	return &model.ProgramItem{
		ProgramID: programID,
		Title:     "Session",
		StartTime: time.Date(2026, 6, 1, startHour, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 6, 1, startHour+1, 0, 0, 0, time.UTC),
		Position:  pos,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func TestUserRepo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepo(db)

	id, err := users.Create(ctx, "  Ada@Example.com ", "password", model.RoleUser, 4)
	require.NoError(t, err)

	_, err = users.Create(ctx, "ada@example.com", "password", model.RoleUser, 4)
	assert.ErrorIs(t, err, ErrEmailExists)

	u, err := users.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsAdmin())

	require.NoError(t, users.SetRole(ctx, "ada@example.com", model.RoleAdmin))
	u, err = users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	_, err = users.GetByID(ctx, id+1)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, users.SetRole(ctx, "nobody@example.com", model.RoleAdmin), ErrUserNotFound)
}

func TestTokenRepo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	uid := seedUser(t, db, "tok@example.com")
	tokens := NewTokenRepo(db)

	require.NoError(t, tokens.StoreRefresh(ctx, uid, "h1", time.Now().Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, uid, "h2", time.Now().Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, uid, "expired", time.Now().Add(-time.Hour)))

	got, err := tokens.ValidateRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	_, err = tokens.ValidateRefresh(ctx, "expired")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	_, err = tokens.ValidateRefresh(ctx, "unknown")
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	require.NoError(t, tokens.RevokeByHash(ctx, "h1"))
	_, err = tokens.ValidateRefresh(ctx, "h1")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	row, err := tokens.Lookup(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, row.RevokedAt)
	assert.Equal(t, uid, row.UserID)

	require.NoError(t, tokens.RevokeAllForUser(ctx, uid))
	_, err = tokens.ValidateRefresh(ctx, "h2")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestProgramRepoRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	owner := seedUser(t, db, "owner@example.com")

	capacity := uint32(40)
	p := seedProgram(t, store, owner)
	p.Capacity = &capacity
	p.Description = "Annual"
	p.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, store.Programs.Update(ctx, p))

	got, err := store.Programs.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summit", got.Title)
	assert.Equal(t, "Annual", got.Description)
	assert.Equal(t, p.Date, got.Date)
	require.NotNil(t, got.Capacity)
	assert.Equal(t, capacity, *got.Capacity)
	assert.False(t, got.IsShared())
	assert.Nil(t, got.SharedAt)
	assert.Equal(t, base, got.CreatedAt)

	// Unchanged values still count as found.
	require.NoError(t, store.Programs.Update(ctx, got))

	missing := *got
	missing.ID = got.ID + 10
	assert.ErrorIs(t, store.Programs.Update(ctx, &missing), ErrProgramNotFound)
	_, err = store.Programs.GetByID(ctx, missing.ID)
	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestProgramRepoListOrdering(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	a := seedUser(t, db, "a@example.com")
	b := seedUser(t, db, "b@example.com")

	older := seedProgram(t, store, a)
	newer := &model.Program{OwnerID: a, Title: "Later", Date: base, CreatedAt: base.Add(time.Hour), UpdatedAt: base}
	require.NoError(t, store.Programs.Create(ctx, newer))
	seedProgram(t, store, b)

	mine, err := store.Programs.ListByOwner(ctx, a)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)
	assert.Equal(t, older.ID, mine[1].ID)

	all, err := store.Programs.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSetShareTokenAfterConcurrentCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "race.db")
	require.NoError(t, database.MigrateSQLite(path))
	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	rivalDB, err := database.OpenSQLite(path)
	require.NoError(t, err)
	defer rivalDB.Close()

	ctx := context.Background()
	store := NewStore(db)
	p := seedProgram(t, store, seedUser(t, db, "owner@example.com"))

	err = store.InTx(ctx, func(tx *Store) error {
		// Reading first pins the transaction to the pre-share snapshot.
		got, err := tx.Programs.GetByID(ctx, p.ID)
		require.NoError(t, err)
		require.False(t, got.IsShared())

		won, err := NewProgramRepo(rivalDB).SetShareToken(ctx, p.ID, "rival", base)
		require.NoError(t, err)
		require.True(t, won)

		stored, err := tx.Programs.SetShareToken(ctx, p.ID, "late", base)
		require.NoError(t, err)
		assert.False(t, stored)
		return nil
	})
	require.NoError(t, err)

	got, err := store.Programs.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "rival", got.ShareToken)
}

func TestSetShareToken(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	owner := seedUser(t, db, "owner@example.com")
	p := seedProgram(t, store, owner)
	q := seedProgram(t, store, owner)

	ok, err := store.Programs.SetShareToken(ctx, p.ID, "tok-1", base)
	require.NoError(t, err)
	assert.True(t, ok)

	// Once set, the token is never replaced.
	ok, err = store.Programs.SetShareToken(ctx, p.ID, "tok-2", base.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	// Tokens are globally unique.
	_, err = store.Programs.SetShareToken(ctx, q.ID, "tok-1", base)
	assert.ErrorIs(t, err, ErrDuplicate)

	exists, err := store.Programs.ShareTokenExists(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.Programs.ShareTokenExists(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := store.Programs.GetByShareToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	require.NotNil(t, got.SharedAt)
	assert.Equal(t, base, *got.SharedAt)

	_, err = store.Programs.GetByShareToken(ctx, "")
	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestItemRepo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	owner := seedUser(t, db, "owner@example.com")
	p := seedProgram(t, store, owner)
	q := seedProgram(t, store, owner)

	maxPos, err := store.Items.MaxPosition(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, maxPos)

	first := newItem(p.ID, 5, 9)
	second := newItem(p.ID, 2, 11)
	require.NoError(t, store.Items.Create(ctx, first))
	require.NoError(t, store.Items.Create(ctx, second))
	require.NoError(t, store.Items.Create(ctx, newItem(q.ID, 1, 9)))

	assert.ErrorIs(t, store.Items.Create(ctx, newItem(p.ID, 5, 14)), ErrDuplicate)

	maxPos, err = store.Items.MaxPosition(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, maxPos)
	assert.Equal(t, uint32(5), *maxPos)

	items, err := store.Items.ListByProgram(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.StartTime, items[1].StartTime)

	byProgram, err := store.Items.ListByPrograms(ctx, []uint64{p.ID, q.ID})
	require.NoError(t, err)
	assert.Len(t, byProgram[p.ID], 2)
	assert.Len(t, byProgram[q.ID], 1)

	_, err = store.Items.GetByIDAndProgram(ctx, first.ID, q.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	second.Position = 5
	assert.ErrorIs(t, store.Items.Update(ctx, second), ErrDuplicate)

	assert.ErrorIs(t, store.Items.Delete(ctx, first.ID, q.ID), ErrItemNotFound)
	require.NoError(t, store.Items.Delete(ctx, first.ID, p.ID))
}

func TestDeleteProgramRemovesItems(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	owner := seedUser(t, db, "owner@example.com")
	p := seedProgram(t, store, owner)
	require.NoError(t, store.Items.Create(ctx, newItem(p.ID, 1, 9)))

	require.NoError(t, store.InTx(ctx, func(tx *Store) error {
		return tx.Programs.Delete(ctx, p.ID)
	}))

	items, err := store.Items.ListByProgram(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.ErrorIs(t, store.Programs.Delete(ctx, p.ID), ErrProgramNotFound)
}

func TestInTxRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	owner := seedUser(t, db, "owner@example.com")
	boom := errors.New("boom")

	err := store.InTx(ctx, func(tx *Store) error {
		seedProgram(t, tx, owner)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := store.Programs.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDBTimeScan(t *testing.T) {
	var v dbTime
	require.NoError(t, v.Scan("2026-05-01 12:00:00"))
	assert.Equal(t, base, v.Time)
	require.NoError(t, v.Scan([]byte("2026-05-01")))
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), v.Time)
	require.NoError(t, v.Scan(nil))
	assert.False(t, v.Valid)
	assert.Error(t, v.Scan(42))
}
