package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/access"
	"github.com/iliyamo/program-planner/internal/model"
	"github.com/iliyamo/program-planner/internal/queue"
	"github.com/iliyamo/program-planner/internal/repository"
	"github.com/iliyamo/program-planner/internal/schedule"
)

// ShareResult is the outcome of ShareProgram.
type ShareResult struct {
	Token         string
	SharedAt      time.Time
	AlreadyShared bool
	Program       ProgramView
}

// ShareProgram issues the public share token of a program.
//
// The first share requires the program to be ready and fails with
// ErrNotReady otherwise.  Later calls return the stored token with
// AlreadyShared set; they never regenerate the token, re-check readiness
// or touch SharedAt.
func (s *ProgramService) ShareProgram(ctx context.Context, actor access.Actor, id uint64) (*ShareResult, error) {
	var res ShareResult
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		p, err := loadProgram(ctx, tx, actor, id, access.ActionShare)
		if err != nil {
			return err
		}
		items, err := tx.Items.ListByProgram(ctx, p.ID)
		if err != nil {
			return err
		}
		if p.IsShared() {
			res = alreadyShared(p, items)
			return nil
		}
		if !schedule.IsReady(items) {
			return ErrNotReady
		}

		sharedAt := s.clock()
		token, err := s.issueToken(ctx, tx, p.ID, sharedAt)
		if err != nil {
			return err
		}
		p.ShareToken = token
		p.SharedAt = &sharedAt
		p.UpdatedAt = sharedAt
		res = ShareResult{Token: token, SharedAt: sharedAt, Program: newView(p, items)}
		return nil
	})
	if errors.Is(err, errLostRace) {
		// A concurrent share committed first.  Its token is only visible
		// outside the transaction snapshot we just rolled back.
		return s.currentShare(ctx, actor, id)
	}
	if err != nil {
		return nil, s.logFailure("share program", err, zap.Uint64("program_id", id))
	}
	if !res.AlreadyShared {
		s.log.Info("program shared", zap.Uint64("program_id", id))
		s.publishShared(ctx, &res.Program)
	}
	return &res, nil
}

var errLostRace = errors.New("program already carries a share token")

// issueToken generates tokens until one is stored.  Candidates already in
// use are skipped up front; a collision that slips past the check is
// caught by the unique constraint and retried too.
func (s *ProgramService) issueToken(ctx context.Context, tx *repository.Store, id uint64, sharedAt time.Time) (string, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", fmt.Errorf("generate share token: %w", err)
		}
		taken, err := tx.Programs.ShareTokenExists(ctx, token)
		if err != nil {
			return "", err
		}
		if taken {
			s.log.Warn("share token collision", zap.Uint64("program_id", id), zap.Int("attempt", attempt))
			continue
		}
		stored, err := tx.Programs.SetShareToken(ctx, id, token, sharedAt)
		if errors.Is(err, repository.ErrDuplicate) {
			s.log.Warn("share token collision", zap.Uint64("program_id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return "", err
		}
		if !stored {
			return "", errLostRace
		}
		return token, nil
	}
	return "", ErrTokenSpaceExhausted
}

func (s *ProgramService) currentShare(ctx context.Context, actor access.Actor, id uint64) (*ShareResult, error) {
	view, err := s.GetProgram(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !view.Program.IsShared() {
		return nil, errLostRace
	}
	res := alreadyShared(&view.Program, view.Items)
	return &res, nil
}

func alreadyShared(p *model.Program, items []model.ProgramItem) ShareResult {
	res := ShareResult{Token: p.ShareToken, AlreadyShared: true, Program: newView(p, items)}
	if p.SharedAt != nil {
		res.SharedAt = *p.SharedAt
	}
	return res
}

// publishShared emits the program.shared event.  Delivery is best effort;
// the share itself has already committed.
func (s *ProgramService) publishShared(ctx context.Context, v *ProgramView) {
	if s.publisher == nil {
		return
	}
	ev := queue.ProgramSharedEvent{
		ProgramID: v.Program.ID,
		OwnerID:   v.Program.OwnerID,
		Title:     v.Program.Title,
		Date:      v.Program.Date.Format("2006-01-02"),
		ItemCount: len(v.Items),
	}
	if v.Program.SharedAt != nil {
		ev.SharedAt = v.Program.SharedAt.UTC().Format(time.RFC3339)
	}
	if err := s.publisher.PublishProgramShared(ctx, ev); err != nil {
		s.log.Warn("publish program.shared failed", zap.Uint64("program_id", v.Program.ID), zap.Error(err))
	}
}
