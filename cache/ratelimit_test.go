package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

var (
	testRegular  = Tier{HourlyLimit: 10, Cooldown: 5 * time.Second}
	testElevated = Tier{HourlyLimit: 999999, Cooldown: time.Second}
)

func TestAdmitCooldown(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	l := NewRateLimiter(client, testRegular, testElevated)

	first, err := l.Admit(ctx, 7, false)
	if err != nil || !first.Allowed {
		t.Fatalf("first admit = %+v, %v", first, err)
	}
	second, err := l.Admit(ctx, 7, false)
	if err != nil {
		t.Fatal(err)
	}
	if second.Allowed || second.RetryAfter <= 0 {
		t.Fatalf("second admit = %+v, want denial with retry hint", second)
	}

	mr.FastForward(time.Duration(second.RetryAfter) * time.Second)
	third, err := l.Admit(ctx, 7, false)
	if err != nil || !third.Allowed {
		t.Fatalf("third admit = %+v, %v", third, err)
	}
}

func TestAdmitHourlyCeiling(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	l := NewRateLimiter(client, testRegular, testElevated)

	for i := 1; i <= testRegular.HourlyLimit; i++ {
		a, err := l.Admit(ctx, 9, false)
		if err != nil {
			t.Fatal(err)
		}
		if !a.Allowed {
			t.Fatalf("admit %d denied: %+v", i, a)
		}
		mr.FastForward(testRegular.Cooldown)
	}

	a, err := l.Admit(ctx, 9, false)
	if err != nil {
		t.Fatal(err)
	}
	if a.Allowed || a.RetryAfter != 0 {
		t.Fatalf("admit over ceiling = %+v, want denied with 0", a)
	}

	mr.FastForward(time.Hour)
	if a, _ := l.Admit(ctx, 9, false); !a.Allowed {
		t.Fatalf("admit after window reset = %+v", a)
	}
}

func TestAdmitElevatedCooldownIsShorter(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	l := NewRateLimiter(client, testRegular, testElevated)

	if a, _ := l.Admit(ctx, 1, true); !a.Allowed {
		t.Fatal("first elevated admit denied")
	}
	a, _ := l.Admit(ctx, 1, true)
	if a.Allowed || a.RetryAfter != 1 {
		t.Fatalf("second elevated admit = %+v", a)
	}
	mr.FastForward(time.Second)
	if a, _ := l.Admit(ctx, 1, true); !a.Allowed {
		t.Fatal("elevated admit after 1s denied")
	}
}

func TestAdmitConcurrentSingleSlot(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	l := NewRateLimiter(client, testRegular, testElevated)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := l.Admit(ctx, 3, false)
			if err != nil {
				t.Error(err)
				return
			}
			if a.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 1 {
		t.Fatalf("%d concurrent admits passed, want 1", allowed)
	}
}
