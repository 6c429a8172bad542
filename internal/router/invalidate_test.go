package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/handler"
)

type recordingPurger struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (p *recordingPurger) InvalidatePath(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	return p.err
}

func (p *recordingPurger) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

func TestSharedViewCachePurgesAgainAfterDelay(t *testing.T) {
	purger := &recordingPurger{}
	inv := SharedViewCache{Cache: purger, Repurge: 20 * time.Millisecond, Log: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	inv.InvalidateShared(ctx, "tok")
	// The delayed purge must not depend on the request context.
	cancel()

	want := handler.SharedPathPrefix + "tok"
	assert.Equal(t, []string{want}, purger.calls())
	assert.Eventually(t, func() bool { return len(purger.calls()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{want, want}, purger.calls())
}

func TestSharedViewCacheWithoutRepurge(t *testing.T) {
	purger := &recordingPurger{err: errors.New("redis down")}
	inv := SharedViewCache{Cache: purger, Log: zap.NewNop()}

	inv.InvalidateShared(context.Background(), "tok")
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, purger.calls(), 1)
}
