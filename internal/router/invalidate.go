package router

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/handler"
)

// PathPurger deletes every cached response stored for a path.
// *middleware.ResponseCache implements it.
type PathPurger interface {
	InvalidatePath(ctx context.Context, path string) error
}

// repurgeTimeout bounds the delayed purge, which runs after the request
// that scheduled it has finished.
const repurgeTimeout = 5 * time.Second

// SharedViewCache purges cached public responses of a shared program.  It
// satisfies service.SharedViewInvalidator.
//
// A public read that loaded the program before an edit committed can
// still store its response after the first purge.  When Repurge is set, a
// second purge runs after that delay and drops such an entry, so a stale
// view lives at most Repurge rather than the full cache TTL.
type SharedViewCache struct {
	Cache   PathPurger
	Repurge time.Duration
	Log     *zap.Logger
}

// InvalidateShared drops every cached variant of the program's public path.
// Failures are logged; stale entries expire with the cache TTL.
func (s SharedViewCache) InvalidateShared(ctx context.Context, token string) {
	path := handler.SharedPathPrefix + token
	s.purge(ctx, path)
	if s.Repurge <= 0 {
		return
	}
	time.AfterFunc(s.Repurge, func() {
		ctx, cancel := context.WithTimeout(context.Background(), repurgeTimeout)
		defer cancel()
		s.purge(ctx, path)
	})
}

func (s SharedViewCache) purge(ctx context.Context, path string) {
	if err := s.Cache.InvalidatePath(ctx, path); err != nil && s.Log != nil {
		s.Log.Warn("shared view invalidation failed", zap.String("path", path), zap.Error(err))
	}
}
