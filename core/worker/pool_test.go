package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoBoundsConcurrency(t *testing.T) {
	p := NewPool("test", 2)
	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	if peak > 2 {
		t.Fatalf("peak concurrency %d > 2", peak)
	}
}

func TestDoReturnsContextError(t *testing.T) {
	p := NewPool("test", 1)
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Do(ctx, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("expected context error while pool is full")
	}
	close(release)
}

func TestTryGo(t *testing.T) {
	p := NewPool("bg", 1)
	done := make(chan struct{})
	block := make(chan struct{})
	if !p.TryGo(context.Background(), func(ctx context.Context) { <-block; close(done) }) {
		t.Fatal("first job rejected")
	}
	if p.TryGo(context.Background(), func(ctx context.Context) {}) {
		t.Fatal("second job accepted while pool is full")
	}
	close(block)
	<-done
}

func TestGoBlocksWhileFull(t *testing.T) {
	p := NewPool("updates", 1)
	block := make(chan struct{})
	if err := p.Go(context.Background(), func(ctx context.Context) { <-block }); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	var ran atomic.Bool
	if err := p.Go(ctx, func(ctx context.Context) { ran.Store(true) }); err == nil {
		t.Fatal("second job admitted while the pool is full")
	}

	close(block)
	done := make(chan struct{})
	if err := p.Go(context.Background(), func(ctx context.Context) { close(done) }); err != nil {
		t.Fatal(err)
	}
	<-done
	if ran.Load() {
		t.Fatal("rejected job ran")
	}
}

func TestGoRecoversPanic(t *testing.T) {
	p := NewPool("updates", 1)
	if err := p.Go(context.Background(), func(ctx context.Context) { panic("boom") }); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	if err := p.Go(context.Background(), func(ctx context.Context) { close(done) }); err != nil {
		t.Fatal(err)
	}
	<-done
}
