package worker

import (
	"context"

	"github.com/zorins376-hub/music-bot/logger"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many blocking jobs (downloads, bulk imports) run at once.
type Pool struct {
	name string
	sem  *semaphore.Weighted
}

func NewPool(name string, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{name: name, sem: semaphore.NewWeighted(int64(size))}
}

// Do runs fn once a slot is free. It returns ctx.Err() if the context ends first.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn(ctx)
}

// Go waits for a free slot, then runs fn in the background. Callers block
// while the pool is full, so at most size jobs exist at any time.
func (p *Pool) Go(ctx context.Context, fn func(ctx context.Context)) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	go p.run(ctx, fn)
	return nil
}

// TryGo starts fn in the background if a slot is free right now.
func (p *Pool) TryGo(ctx context.Context, fn func(ctx context.Context)) bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	go p.run(ctx, fn)
	return true
}

// run executes fn in the slot the caller acquired.
func (p *Pool) run(ctx context.Context, fn func(ctx context.Context)) {
	defer p.sem.Release(1)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Worker] job panicked", logger.String("pool", p.name), logger.Any("panic", r))
		}
	}()
	fn(ctx)
}
