// Package service orchestrates program and item operations.  Each public
// method runs its reads and writes in a single transaction, applies the
// access policy and the scheduling rules, and notifies collaborators
// after commit.
package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/access"
	"github.com/iliyamo/program-planner/internal/model"
	"github.com/iliyamo/program-planner/internal/queue"
	"github.com/iliyamo/program-planner/internal/repository"
	"github.com/iliyamo/program-planner/internal/utils"
)

const (
	maxTitleLen             = 255
	defaultMaxTokenAttempts = 8
)

// EventPublisher receives the program.shared event after a first share
// commits.
type EventPublisher interface {
	PublishProgramShared(ctx context.Context, ev queue.ProgramSharedEvent) error
}

// SharedViewInvalidator drops any cached public view of a shared program.
type SharedViewInvalidator interface {
	InvalidateShared(ctx context.Context, token string)
}

// ProgramService implements the program, item and sharing operations.
type ProgramService struct {
	store       *repository.Store
	log         *zap.Logger
	publisher   EventPublisher
	invalidator SharedViewInvalidator
	now         func() time.Time
	newToken    func() (string, error)
	maxAttempts int
}

// Option configures a ProgramService.
type Option func(*ProgramService)

// WithLogger sets the logger.  The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *ProgramService) { s.log = l }
}

// WithPublisher sets the program.shared event sink.
func WithPublisher(p EventPublisher) Option {
	return func(s *ProgramService) { s.publisher = p }
}

// WithInvalidator sets the shared view cache invalidator.
func WithInvalidator(i SharedViewInvalidator) Option {
	return func(s *ProgramService) { s.invalidator = i }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *ProgramService) { s.now = now }
}

// WithTokenSource overrides share token generation.
func WithTokenSource(gen func() (string, error)) Option {
	return func(s *ProgramService) { s.newToken = gen }
}

// WithMaxTokenAttempts bounds share token generation retries.
func WithMaxTokenAttempts(n int) Option {
	return func(s *ProgramService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewProgramService returns a service backed by store.
func NewProgramService(store *repository.Store, opts ...Option) *ProgramService {
	s := &ProgramService{
		store:       store,
		log:         zap.NewNop(),
		now:         time.Now,
		newToken:    utils.NewShareToken,
		maxAttempts: defaultMaxTokenAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock returns the current time in UTC at storage precision.
func (s *ProgramService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// loadProgram fetches a program and applies the access policy.  Denials
// and absences both become ErrNotFound.
func loadProgram(ctx context.Context, tx *repository.Store, actor access.Actor, id uint64, action access.Action) (*model.Program, error) {
	p, err := tx.Programs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProgramNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !access.CanAccess(actor, p, action) {
		return nil, ErrNotFound
	}
	return p, nil
}

// invalidate drops the cached public view of p when it is shared.
func (s *ProgramService) invalidate(ctx context.Context, p *model.Program) {
	if s.invalidator == nil || p == nil || !p.IsShared() {
		return
	}
	s.invalidator.InvalidateShared(ctx, p.ShareToken)
}

func validateTitle(field, title string) error {
	if strings.TrimSpace(title) == "" {
		return invalid(field, "is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return invalid(field, "must be at most 255 characters")
	}
	return nil
}
