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

// ProgramDraft holds the fields of a new program.
type ProgramDraft struct {
	Title       string
	Description string
	Date        time.Time
	Capacity    *uint32
}

// ProgramPatch holds the fields to change on a program.  Nil fields keep
// their stored value; ClearCapacity removes the capacity.
type ProgramPatch struct {
	Title         *string
	Description   *string
	Date          *time.Time
	Capacity      *uint32
	ClearCapacity bool
}

// ProgramView is a program together with its items and derived state.
type ProgramView struct {
	Program          model.Program
	Items            []model.ProgramItem
	Ready            bool
	SharedButUnready bool
}

func newView(p *model.Program, items []model.ProgramItem) ProgramView {
	if items == nil {
		items = []model.ProgramItem{}
	}
	return ProgramView{
		Program:          *p,
		Items:            items,
		Ready:            schedule.IsReady(items),
		SharedButUnready: schedule.SharedButUnready(p, items),
	}
}

// Readiness is the derived sharing state of a program.
type Readiness struct {
	Ready            bool
	SharedButUnready bool
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateProgram stores a new program owned by actor.
func (s *ProgramService) CreateProgram(ctx context.Context, actor access.Actor, d ProgramDraft) (*model.Program, error) {
	if !actor.Authenticated {
		return nil, ErrNotFound
	}
	d.Title = strings.TrimSpace(d.Title)
	if err := validateTitle("title", d.Title); err != nil {
		return nil, err
	}
	if d.Date.IsZero() {
		return nil, invalid("date", "is required")
	}
	now := s.clock()
	p := &model.Program{
		OwnerID:     actor.UserID,
		Title:       d.Title,
		Description: d.Description,
		Date:        dateOnly(d.Date),
		Capacity:    d.Capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InTx(ctx, func(tx *repository.Store) error {
		return tx.Programs.Create(ctx, p)
	}); err != nil {
		s.log.Error("create program failed", zap.Error(err), zap.Uint64("owner_id", actor.UserID))
		return nil, err
	}
	s.log.Info("program created", zap.Uint64("program_id", p.ID), zap.Uint64("owner_id", p.OwnerID))
	return p, nil
}

// GetProgram returns a program with its items ordered by position.
func (s *ProgramService) GetProgram(ctx context.Context, actor access.Actor, id uint64) (*ProgramView, error) {
	var view ProgramView
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		p, err := loadProgram(ctx, tx, actor, id, access.ActionRead)
		if err != nil {
			return err
		}
		items, err := tx.Items.ListByProgram(ctx, p.ID)
		if err != nil {
			return err
		}
		view = newView(p, items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListPrograms returns the programs visible to actor, newest first: every
// program for an administrator, the caller's own otherwise.
func (s *ProgramService) ListPrograms(ctx context.Context, actor access.Actor) ([]ProgramView, error) {
	if !actor.Authenticated {
		return nil, ErrNotFound
	}
	var out []ProgramView
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var (
			programs []model.Program
			err      error
		)
		if actor.Admin {
			programs, err = tx.Programs.ListAll(ctx)
		} else {
			programs, err = tx.Programs.ListByOwner(ctx, actor.UserID)
		}
		if err != nil {
			return err
		}
		ids := make([]uint64, len(programs))
		for i := range programs {
			ids[i] = programs[i].ID
		}
		items, err := tx.Items.ListByPrograms(ctx, ids)
		if err != nil {
			return err
		}
		out = make([]ProgramView, 0, len(programs))
		for i := range programs {
			out = append(out, newView(&programs[i], items[programs[i].ID]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProgram applies patch to a program.  Share state is never
// changed, and a shared program stays shared whatever the edit does to
// its readiness.
func (s *ProgramService) UpdateProgram(ctx context.Context, actor access.Actor, id uint64, patch ProgramPatch) (*model.Program, error) {
	var p *model.Program
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if p, err = loadProgram(ctx, tx, actor, id, access.ActionWrite); err != nil {
			return err
		}
		if patch.Title != nil {
			p.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Date != nil {
			p.Date = dateOnly(*patch.Date)
		}
		switch {
		case patch.ClearCapacity:
			p.Capacity = nil
		case patch.Capacity != nil:
			c := *patch.Capacity
			p.Capacity = &c
		}
		if err := validateTitle("title", p.Title); err != nil {
			return err
		}
		p.UpdatedAt = s.clock()
		return tx.Programs.Update(ctx, p)
	})
	if err != nil {
		return nil, s.logFailure("update program", err, zap.Uint64("program_id", id))
	}
	s.invalidate(ctx, p)
	return p, nil
}

// DeleteProgram removes a program and every item it holds.
func (s *ProgramService) DeleteProgram(ctx context.Context, actor access.Actor, id uint64) error {
	var p *model.Program
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if p, err = loadProgram(ctx, tx, actor, id, access.ActionDelete); err != nil {
			return err
		}
		return tx.Programs.Delete(ctx, p.ID)
	})
	if err != nil {
		return s.logFailure("delete program", err, zap.Uint64("program_id", id))
	}
	s.invalidate(ctx, p)
	s.log.Info("program deleted", zap.Uint64("program_id", id))
	return nil
}

// EvaluateReadiness recomputes readiness from the stored items.
func (s *ProgramService) EvaluateReadiness(ctx context.Context, actor access.Actor, id uint64) (Readiness, error) {
	view, err := s.GetProgram(ctx, actor, id)
	if err != nil {
		return Readiness{}, err
	}
	return Readiness{Ready: view.Ready, SharedButUnready: view.SharedButUnready}, nil
}

// CheckAccess reports whether actor may perform action on the program.  A
// missing program is reported as denied.  Public reads are only possible
// through GetSharedProgram, so ActionReadShared is always denied here.
func (s *ProgramService) CheckAccess(ctx context.Context, actor access.Actor, id uint64, action access.Action) (bool, error) {
	if action == access.ActionReadShared {
		return false, nil
	}
	var allowed bool
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		_, err := loadProgram(ctx, tx, actor, id, action)
		switch {
		case err == nil:
			allowed = true
		case errors.Is(err, ErrNotFound):
		default:
			return err
		}
		return nil
	})
	return allowed, err
}

// GetSharedProgram returns the public view of a shared program.  Unknown
// tokens yield ErrNotFound.
func (s *ProgramService) GetSharedProgram(ctx context.Context, token string) (*ProgramView, error) {
	var view ProgramView
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		p, err := tx.Programs.GetByShareToken(ctx, token)
		if err != nil {
			if errors.Is(err, repository.ErrProgramNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !access.CanAccess(access.Anonymous(), p, access.ActionReadShared) {
			return ErrNotFound
		}
		items, err := tx.Items.ListByProgram(ctx, p.ID)
		if err != nil {
			return err
		}
		view = newView(p, items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// logFailure logs unexpected errors at Error and domain outcomes at Info,
// then returns err unchanged.
func (s *ProgramService) logFailure(op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.Error(err))
	if isDomainError(err) {
		s.log.Info(op+" rejected", fields...)
	} else {
		s.log.Error(op+" failed", fields...)
	}
	return err
}
