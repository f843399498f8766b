package cache

import (
	"context"
	"testing"
	"time"

	"github.com/zorins376-hub/music-bot/model"
)

func TestFloodGuard(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	g := NewFloodGuard(client, time.Second)

	if ok, err := g.Allow(ctx, 5); err != nil || !ok {
		t.Fatalf("first update dropped: %v %v", ok, err)
	}
	if ok, _ := g.Allow(ctx, 5); ok {
		t.Fatal("second update inside window must be dropped")
	}
	if ok, _ := g.Allow(ctx, 6); !ok {
		t.Fatal("other users are independent")
	}
	mr.FastForward(time.Second)
	if ok, _ := g.Allow(ctx, 5); !ok {
		t.Fatal("update after window dropped")
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewSettings(client, map[string]int{SettingMaxResults: 10, SettingDefaultBitrate: 192})

	if got := s.Int(ctx, SettingMaxResults); got != 10 {
		t.Fatalf("default max_results = %d", got)
	}
	if err := s.Set(ctx, SettingMaxResults, 5); err != nil {
		t.Fatal(err)
	}
	if got := s.Int(ctx, SettingMaxResults); got != 5 {
		t.Fatalf("max_results = %d, want 5", got)
	}
	if err := s.Set(ctx, "colour", 1); err == nil {
		t.Fatal("unknown key accepted")
	}
	mr.Set("bot:setting:default_bitrate", "loud")
	if got := s.Int(ctx, SettingDefaultBitrate); got != 192 {
		t.Fatalf("malformed value should fall back, got %d", got)
	}
}

func TestAdminForwardMode(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	s := NewAdminState(client)

	if _, ok, err := s.ForwardMode(ctx, 1); err != nil || ok {
		t.Fatalf("unexpected forward mode: %v %v", ok, err)
	}
	if err := s.SetForwardMode(ctx, 1, "tequila"); err != nil {
		t.Fatal(err)
	}
	label, ok, err := s.ForwardMode(ctx, 1)
	if err != nil || !ok || label != "tequila" {
		t.Fatalf("ForwardMode = %q %v %v", label, ok, err)
	}

	// a second handle on the same store sees the state
	other := NewAdminState(client)
	if label, ok, _ := other.ForwardMode(ctx, 1); !ok || label != "tequila" {
		t.Fatal("state not shared across instances")
	}

	if err := s.ClearForwardMode(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.ForwardMode(ctx, 1); ok {
		t.Fatal("forward mode not cleared")
	}
}

func TestRadioQueue(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	q := NewRadioQueue(client)

	for _, title := range []string{"one", "two", "three"} {
		if err := q.Push(ctx, "fullmoon", RadioEntry{FileID: "f_" + title, Title: title}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := q.Len(ctx, "fullmoon")
	if err != nil || n != 3 {
		t.Fatalf("Len = %d %v", n, err)
	}
	head, err := q.Range(ctx, "fullmoon", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(head) != 2 || head[0].Title != "one" || head[1].Title != "two" {
		t.Fatalf("Range = %+v", head)
	}
}

func TestChartStore(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewChartStore(client, 6*time.Hour)

	entries := []model.ChartEntry{
		{Artist: "Artist A", Title: "One"},
		{Artist: "Artist B", Title: "Two"},
		{Artist: "Artist C", Title: "Three"},
	}
	if err := s.Replace(ctx, "global", entries); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("chart:global"); ttl != 6*time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}

	page, err := s.Range(ctx, "global", 1, 5)
	if err != nil || len(page) != 2 || page[0].Title != "Two" {
		t.Fatalf("Range = %+v %v", page, err)
	}
	e, ok, err := s.Entry(ctx, "global", 2)
	if err != nil || !ok || e.Query() != "Artist C - Three" {
		t.Fatalf("Entry(2) = %+v %v %v", e, ok, err)
	}
	if _, ok, _ := s.Entry(ctx, "global", 3); ok {
		t.Fatal("out of range entry found")
	}

	// a refresh replaces, never appends
	if err := s.Replace(ctx, "global", entries[:1]); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Len(ctx, "global"); n != 1 {
		t.Fatalf("Len after replace = %d", n)
	}

	mr.FastForward(6*time.Hour + time.Second)
	if _, ok, _ := s.Entry(ctx, "global", 0); ok {
		t.Fatal("chart outlived its ttl")
	}
}
