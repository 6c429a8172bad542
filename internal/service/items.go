package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/access"
	"github.com/iliyamo/program-planner/internal/model"
	"github.com/iliyamo/program-planner/internal/repository"
	"github.com/iliyamo/program-planner/internal/schedule"
)

// ItemDraft holds the fields of a new item.  A nil Position appends the
// item after the current last position.
type ItemDraft struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Position    *uint32
}

// ItemPatch holds the fields to change on an item.  Nil fields keep their
// stored value.
type ItemPatch struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
	Position    *uint32
}

func instant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// checkItem validates an item's own fields and its range against the
// other items of the program.
func checkItem(it *model.ProgramItem, siblings []model.ProgramItem) error {
	if err := validateTitle("title", it.Title); err != nil {
		return err
	}
	r := schedule.RangeOf(*it)
	if err := schedule.ValidateRange(r); err != nil {
		return err
	}
	return schedule.ValidateAgainstSiblings(r, siblings, it.ID)
}

func itemNotFound(err error) error {
	if errors.Is(err, repository.ErrItemNotFound) {
		return ErrNotFound
	}
	return err
}

func duplicatePosition(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrDuplicatePosition
	}
	return err
}

// ListItems returns the items of a program ordered by position.
func (s *ProgramService) ListItems(ctx context.Context, actor access.Actor, programID uint64) ([]model.ProgramItem, error) {
	var items []model.ProgramItem
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := loadProgram(ctx, tx, actor, programID, access.ActionRead); err != nil {
			return err
		}
		var err error
		items, err = tx.Items.ListByProgram(ctx, programID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem returns one item of a program.
func (s *ProgramService) GetItem(ctx context.Context, actor access.Actor, programID, itemID uint64) (*model.ProgramItem, error) {
	var it *model.ProgramItem
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := loadProgram(ctx, tx, actor, programID, access.ActionRead); err != nil {
			return err
		}
		var err error
		it, err = tx.Items.GetByIDAndProgram(ctx, itemID, programID)
		return itemNotFound(err)
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// CreateItem adds an item to a program.  It fails with
// *schedule.InvalidRangeError, *schedule.ConflictError or
// ErrDuplicatePosition and leaves the program unchanged in that case.
func (s *ProgramService) CreateItem(ctx context.Context, actor access.Actor, programID uint64, d ItemDraft) (*model.ProgramItem, error) {
	var (
		p  *model.Program
		it *model.ProgramItem
	)
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if p, err = loadProgram(ctx, tx, actor, programID, access.ActionWrite); err != nil {
			return err
		}
		now := s.clock()
		it = &model.ProgramItem{
			ProgramID:   programID,
			Title:       strings.TrimSpace(d.Title),
			Description: d.Description,
			StartTime:   instant(d.Start),
			EndTime:     instant(d.End),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		siblings, err := tx.Items.ListByProgram(ctx, programID)
		if err != nil {
			return err
		}
		if err := checkItem(it, siblings); err != nil {
			return err
		}
		maxPos, err := tx.Items.MaxPosition(ctx, programID)
		if err != nil {
			return err
		}
		pos, err := schedule.AssignPosition(d.Position, maxPos)
		if errors.Is(err, schedule.ErrPositionOverflow) {
			return invalid("position", "the program already uses the largest position; pass a free position explicitly")
		}
		if err != nil {
			return err
		}
		it.Position = pos
		return duplicatePosition(tx.Items.Create(ctx, it))
	})
	if err != nil {
		return nil, s.logFailure("create item", err, zap.Uint64("program_id", programID))
	}
	s.invalidate(ctx, p)
	s.log.Info("item created",
		zap.Uint64("program_id", programID),
		zap.Uint64("item_id", it.ID),
		zap.Uint32("position", it.Position))
	return it, nil
}

// UpdateItem merges patch into the stored item and validates the result
// the same way CreateItem does, excluding the item itself from the
// conflict check.
func (s *ProgramService) UpdateItem(ctx context.Context, actor access.Actor, programID, itemID uint64, patch ItemPatch) (*model.ProgramItem, error) {
	var (
		p  *model.Program
		it *model.ProgramItem
	)
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if p, err = loadProgram(ctx, tx, actor, programID, access.ActionWrite); err != nil {
			return err
		}
		if it, err = tx.Items.GetByIDAndProgram(ctx, itemID, programID); err != nil {
			return itemNotFound(err)
		}
		if patch.Title != nil {
			it.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			it.Description = *patch.Description
		}
		if patch.Start != nil {
			it.StartTime = instant(*patch.Start)
		}
		if patch.End != nil {
			it.EndTime = instant(*patch.End)
		}
		if patch.Position != nil {
			it.Position = *patch.Position
		}
		siblings, err := tx.Items.ListByProgram(ctx, programID)
		if err != nil {
			return err
		}
		if err := checkItem(it, siblings); err != nil {
			return err
		}
		it.UpdatedAt = s.clock()
		return duplicatePosition(tx.Items.Update(ctx, it))
	})
	if err != nil {
		return nil, s.logFailure("update item", err,
			zap.Uint64("program_id", programID), zap.Uint64("item_id", itemID))
	}
	s.invalidate(ctx, p)
	return it, nil
}

// DeleteItem removes one item.  Remaining positions are not renumbered.
func (s *ProgramService) DeleteItem(ctx context.Context, actor access.Actor, programID, itemID uint64) error {
	var p *model.Program
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if p, err = loadProgram(ctx, tx, actor, programID, access.ActionWrite); err != nil {
			return err
		}
		return itemNotFound(tx.Items.Delete(ctx, itemID, programID))
	})
	if err != nil {
		return s.logFailure("delete item", err,
			zap.Uint64("program_id", programID), zap.Uint64("item_id", itemID))
	}
	s.invalidate(ctx, p)
	return nil
}
