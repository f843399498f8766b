package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zorins376-hub/music-bot/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleCandidates() []model.Candidate {
	return []model.Candidate{
		{ExternalID: "yt_a", Title: "Bones", Artist: "Imagine Dragons", DurationSeconds: 165, Source: model.SourceVideo, Locator: model.VideoRef{VideoID: "a"}},
		{ExternalID: "yt_b", Title: "Believer", Artist: "Imagine Dragons", DurationSeconds: 204, Source: model.SourceVideo, Locator: model.VideoRef{VideoID: "b"}},
		{ExternalID: "yt_c", Title: "Thunder", Artist: "Imagine Dragons", DurationSeconds: 187, Source: model.SourceVideo, Locator: model.VideoRef{VideoID: "c"}},
	}
}

func TestDeliveryCacheBitrateIsolation(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	c := NewDeliveryCache(client, 30*24*time.Hour)

	if err := c.Set(ctx, "yt_a", 192, "handle_A"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "yt_a", 320); err != nil || ok {
		t.Fatalf("Get(320) = ok %v err %v, want miss", ok, err)
	}
	got, ok, err := c.Get(ctx, "yt_a", 192)
	if err != nil || !ok || got != "handle_A" {
		t.Fatalf("Get(192) = %q %v %v, want handle_A", got, ok, err)
	}
}

func TestDeliveryCacheTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewDeliveryCache(client, 30*24*time.Hour)

	if err := c.Set(ctx, "ym_1", 320, "h"); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL(DeliveryKey("ym_1", 320)); ttl != 30*24*time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}
	mr.FastForward(30*24*time.Hour + time.Second)
	if _, ok, _ := c.Get(ctx, "ym_1", 320); ok {
		t.Fatal("entry should have expired")
	}
}

func TestQueryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewQueryCache(client, 2*time.Minute)

	want := sampleCandidates()
	if err := c.Set(ctx, model.SourceVideo, "  Imagine Dragons ", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, model.SourceVideo, "imagine dragons")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	// other provider, same query
	if _, ok, _ := c.Get(ctx, model.SourceAudioSocial, "imagine dragons"); ok {
		t.Fatal("provider tags must not share entries")
	}

	mr.FastForward(2*time.Minute + time.Second)
	if _, ok, _ := c.Get(ctx, model.SourceVideo, "imagine dragons"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestQueryCacheStoresEmptyResult(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	c := NewQueryCache(client, 2*time.Minute)

	if err := c.Set(ctx, model.SourceVideo, "nothing here", nil); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(ctx, model.SourceVideo, "nothing here")
	if err != nil || !ok {
		t.Fatalf("empty result should be a hit: ok=%v err=%v", ok, err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty non-nil slice", got)
	}
}

func TestSessionResolve(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewSessionStore(client, 5*time.Minute)

	results := sampleCandidates()
	sid, err := s.Store(ctx, results)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if len(sid) != 32 || strings.Contains(sid, "-") {
		t.Fatalf("unexpected sid %q", sid)
	}

	c, ok := s.Resolve(ctx, sid, 1)
	if !ok || c != results[1] {
		t.Fatalf("Resolve(1) = %+v %v", c, ok)
	}
	if _, ok := s.Resolve(ctx, sid, 99); ok {
		t.Fatal("out-of-range index must not resolve")
	}
	if _, ok := s.Resolve(ctx, sid, -1); ok {
		t.Fatal("negative index must not resolve")
	}
	if _, ok := s.Resolve(ctx, "nonexistent-token", 0); ok {
		t.Fatal("unknown session must not resolve")
	}

	mr.FastForward(5*time.Minute + time.Second)
	if _, ok := s.Resolve(ctx, sid, 0); ok {
		t.Fatal("expired session must not resolve")
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
	}
}

func TestKeyNamespacesAreDisjoint(t *testing.T) {
	keys := []string{
		QueryKey(model.SourceVideo, "x"),
		DeliveryKey("x", 192),
		SessionKey("x"),
	}
	prefixes := map[string]bool{}
	for _, k := range keys {
		p := k[:strings.Index(k, ":")]
		if prefixes[p] {
			t.Fatalf("prefix %q reused", p)
		}
		prefixes[p] = true
	}
	if QueryKey(model.SourceVideo, " Bones ") != "qcache:video:bones" {
		t.Fatalf("unexpected query key %q", QueryKey(model.SourceVideo, " Bones "))
	}
	if DeliveryKey("yt_a", 192) != "fid:yt_a:192" {
		t.Fatalf("unexpected delivery key %q", DeliveryKey("yt_a", 192))
	}
}
