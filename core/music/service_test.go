package music

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/zorins376-hub/music-bot/cache"
	"github.com/zorins376-hub/music-bot/core/delivery"
	"github.com/zorins376-hub/music-bot/core/provider"
	"github.com/zorins376-hub/music-bot/core/search"
	"github.com/zorins376-hub/music-bot/core/worker"
	"github.com/zorins376-hub/music-bot/db"
	"github.com/zorins376-hub/music-bot/model"
	"github.com/zorins376-hub/music-bot/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubProvider struct {
	source   model.Source
	results  []model.Candidate
	size     int64
	fetchErr error

	mu      sync.Mutex
	queries []string
	fetches int
}

func (p *stubProvider) Source() model.Source { return p.source }

func (p *stubProvider) Search(ctx context.Context, query string, limit int) ([]model.Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, query)
	return p.results, nil
}

func (p *stubProvider) Fetch(ctx context.Context, c model.Candidate, bitrate int, dir string) (string, error) {
	p.mu.Lock()
	p.fetches++
	p.mu.Unlock()
	if p.fetchErr != nil {
		return "", p.fetchErr
	}
	path := filepath.Join(dir, c.ExternalID+".mp3")
	return path, os.WriteFile(path, make([]byte, p.size), 0o644)
}

type stubPublisher struct {
	mu   sync.Mutex
	sent []delivery.Audio
}

func (p *stubPublisher) SendAudio(ctx context.Context, dest int64, a delivery.Audio) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, a)
	if a.Handle != "" {
		return a.Handle, nil
	}
	return "AgAD-" + filepath.Base(a.Path), nil
}

type stubLinks struct{}

func (stubLinks) Resolve(ctx context.Context, text string) (string, bool, error) {
	if text == "https://open.spotify.com/track/0HqZX76SFLDz2aW8aiqi7G" {
		return "imagine dragons bones", true, nil
	}
	return "", false, nil
}

type env struct {
	svc       *Service
	tracks    repository.TrackRepository
	history   repository.HistoryRepository
	delivery  *cache.DeliveryCache
	video     *stubProvider
	local     *provider.Local
	publisher *stubPublisher
	mr        *miniredis.Miniredis
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.CloseGormDB(gdb) })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tracks := repository.NewTrackRepository(gdb, []string{"tequila", "fullmoon"})
	history := repository.NewHistoryRepository(gdb)
	dc := cache.NewDeliveryCache(client, 720*time.Hour)

	video := &stubProvider{
		source: model.SourceVideo,
		size:   3 * 1024 * 1024,
		results: []model.Candidate{{
			ExternalID:        "yt_bones",
			Title:             "Bones",
			Artist:            "Imagine Dragons",
			DurationSeconds:   215,
			DurationFormatted: "3:35",
			Source:            model.SourceVideo,
			Locator:           model.VideoRef{VideoID: "bones"},
		}},
	}
	local := provider.NewLocal(tracks)
	manager := provider.NewManager()
	manager.Register(local)
	manager.Register(video)

	orch := search.NewOrchestrator(cache.NewQueryCache(client, 2*time.Minute),
		search.Options{MaxDuration: 600, Timeout: time.Second},
		search.Stage{Searcher: local},
		search.Stage{Searcher: video, Cached: true},
	)
	publisher := &stubPublisher{}
	pipeline := delivery.NewPipeline(manager, dc, publisher, tracks, history, worker.NewPool("downloads", 2),
		nil, nil, delivery.Options{MaxFileSize: 10 * 1024 * 1024, DownloadDir: t.TempDir()})

	svc := NewService(Deps{
		Admitter: cache.NewRateLimiter(client,
			cache.Tier{HourlyLimit: 10, Cooldown: 5 * time.Second},
			cache.Tier{HourlyLimit: 999999, Cooldown: time.Second}),
		Searcher:  orch,
		Sessions:  cache.NewSessionStore(client, 5*time.Minute),
		Deliverer: pipeline,
		History:   history,
		Settings:  cache.NewSettings(client, map[string]int{cache.SettingMaxResults: 10, cache.SettingDefaultBitrate: 192}),
		Links:     stubLinks{},
		Handles:   dc,
		Tracks:    tracks,
	})
	return &env{svc: svc, tracks: tracks, history: history, delivery: dc, video: video, local: local, publisher: publisher, mr: mr}
}

func TestSearchAndDeliverEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	user := Caller{ID: 7}

	out, err := e.svc.Search(ctx, user, "imagine dragons bones")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.Status != StatusOK || len(out.Results) != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Results[0].Source != model.SourceVideo || out.Results[0].DurationSeconds != 215 {
		t.Errorf("result = %+v", out.Results[0])
	}
	if len(out.SessionID) < 32 {
		t.Errorf("session id %q looks guessable", out.SessionID)
	}

	got, err := e.svc.Select(ctx, user, 7, out.SessionID, 0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got.Status != StatusOK || got.Result.Handle == "" || got.Result.Bitrate != 192 {
		t.Fatalf("delivery = %+v", got)
	}

	track, err := e.tracks.GetByExternalID(ctx, "yt_bones")
	if err != nil || track == nil {
		t.Fatalf("track row missing: %v", err)
	}
	if track.Downloads != 1 {
		t.Errorf("downloads = %d, want 1", track.Downloads)
	}
	handle, ok, err := e.delivery.Get(ctx, "yt_bones", 192)
	if err != nil || !ok || handle != got.Result.Handle {
		t.Errorf("delivery cache = %q %v %v", handle, ok, err)
	}

	searches, _ := e.history.CountByUser(ctx, 7, model.ActionSearch)
	plays, _ := e.history.CountByUser(ctx, 7, model.ActionPlay)
	if searches != 1 || plays != 1 {
		t.Errorf("history search=%d play=%d", searches, plays)
	}
}

func TestSecondSearchHitsLocalIndex(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	out, _ := e.svc.Search(ctx, Caller{ID: 1, Admin: true}, "imagine dragons bones")
	if _, err := e.svc.Select(ctx, Caller{ID: 1, Admin: true}, 1, out.SessionID, 0); err != nil {
		t.Fatal(err)
	}

	out, err := e.svc.Search(ctx, Caller{ID: 1, Admin: true}, "bones")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 1 || out.Results[0].Source != model.SourceLocal || out.Results[0].DeliveryHandle == "" {
		t.Fatalf("want the delivered track from the local index, got %+v", out.Results)
	}
	if n := len(e.video.queries); n != 1 {
		t.Errorf("video provider called %d times, want 1", n)
	}

	got, err := e.svc.Select(ctx, Caller{ID: 1, Admin: true}, 1, out.SessionID, 0)
	if err != nil || got.Status != StatusOK || got.Result.Origin != delivery.OriginHandle {
		t.Fatalf("delivery = %+v, %v", got, err)
	}
	if e.video.fetches != 1 {
		t.Errorf("fetches = %d, want 1", e.video.fetches)
	}
}

func TestSearchRateLimited(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	user := Caller{ID: 9}

	if out, _ := e.svc.Search(ctx, user, "bones"); out.Status != StatusOK {
		t.Fatalf("first search status = %s", out.Status)
	}
	out, err := e.svc.Search(ctx, user, "bones")
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusRateLimited || out.RetryAfter <= 0 {
		t.Fatalf("second search = %+v", out)
	}

	e.mr.FastForward(6 * time.Second)
	if out, _ := e.svc.Search(ctx, user, "bones"); out.Status != StatusOK {
		t.Fatalf("after cooldown status = %s", out.Status)
	}
}

func TestAdminsBypassRateLimit(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := Caller{ID: 1, Admin: true}
	for i := 0; i < 3; i++ {
		if out, _ := e.svc.Search(ctx, admin, "bones"); out.Status != StatusOK {
			t.Fatalf("search %d status = %s", i, out.Status)
		}
	}
}

func TestHourlyCap(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	user := Caller{ID: 3}
	for i := 0; i < 10; i++ {
		if out, _ := e.svc.Search(ctx, user, "bones"); out.Status != StatusOK {
			t.Fatalf("search %d status = %s", i, out.Status)
		}
		e.mr.FastForward(6 * time.Second)
	}
	out, _ := e.svc.Search(ctx, user, "bones")
	if out.Status != StatusHourlyCap || out.RetryAfter != 0 {
		t.Fatalf("11th search = %+v", out)
	}
}

func TestNoResults(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.video.results = nil
	out, err := e.svc.Search(ctx, Caller{ID: 1}, "zzzz")
	if err != nil || out.Status != StatusNoResults || out.SessionID != "" {
		t.Fatalf("outcome = %+v, %v", out, err)
	}
	searches, _ := e.history.CountByUser(ctx, 1, model.ActionSearch)
	if searches != 0 {
		t.Errorf("empty search must not be recorded, got %d", searches)
	}
}

func TestSpotifyLinkIsResolved(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	out, err := e.svc.Search(ctx, Caller{ID: 1}, "https://open.spotify.com/track/0HqZX76SFLDz2aW8aiqi7G")
	if err != nil || out.Status != StatusOK {
		t.Fatalf("outcome = %+v, %v", out, err)
	}
	if out.Query != "imagine dragons bones" || e.video.queries[0] != "imagine dragons bones" {
		t.Errorf("query = %q, provider saw %v", out.Query, e.video.queries)
	}
}

func TestSelectExpiredSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	out, _ := e.svc.Search(ctx, Caller{ID: 1}, "bones")

	for _, tc := range []struct {
		sid   string
		index int
	}{{"nonexistent-token", 0}, {out.SessionID, 99}} {
		got, err := e.svc.Select(ctx, Caller{ID: 1}, 1, tc.sid, tc.index)
		if err != nil || got.Status != StatusSessionExpired {
			t.Errorf("Select(%q, %d) = %+v, %v", tc.sid, tc.index, got, err)
		}
	}

	e.mr.FastForward(6 * time.Minute)
	got, _ := e.svc.Select(ctx, Caller{ID: 1}, 1, out.SessionID, 0)
	if got.Status != StatusSessionExpired {
		t.Errorf("expired session status = %s", got.Status)
	}
}

func TestSelectClassifiesFailures(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		err  error
		size int64
		want Status
	}{
		{errors.New("ERROR: Sign in to confirm your age"), 0, StatusAgeRestricted},
		{errors.New("connection reset"), 0, StatusFailed},
		{nil, 11 * 1024 * 1024, StatusTooLarge},
	}
	for _, tc := range cases {
		e := newEnv(t)
		e.video.fetchErr = tc.err
		if tc.size > 0 {
			e.video.size = tc.size
		}
		out, _ := e.svc.Search(ctx, Caller{ID: 1, Admin: true}, "bones")
		got, err := e.svc.Select(ctx, Caller{ID: 1, Admin: true}, 1, out.SessionID, 0)
		if err != nil || got.Status != tc.want {
			t.Errorf("fetch err %v size %d: status = %s, %v", tc.err, tc.size, got.Status, err)
		}
	}
}

func TestBitrate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	cases := []struct {
		caller Caller
		want   int
	}{
		{Caller{}, 192},
		{Caller{Quality: 128}, 128},
		{Caller{Quality: 320}, 192},
		{Caller{Quality: 320, Premium: true}, 320},
		{Caller{Quality: 320, Admin: true}, 320},
		{Caller{Quality: 256}, 192},
	}
	for _, tc := range cases {
		if got := e.svc.Bitrate(ctx, tc.caller); got != tc.want {
			t.Errorf("Bitrate(%+v) = %d, want %d", tc.caller, got, tc.want)
		}
	}
}

func TestLongQueryIsCapped(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	out, err := e.svc.Search(ctx, Caller{ID: 1, Admin: true}, "  "+strings.Repeat("я", 600))
	if err != nil || out.Status != StatusOK {
		t.Fatalf("outcome = %+v, %v", out, err)
	}
	if n := utf8.RuneCountInString(out.Query); n != MaxQueryRunes {
		t.Errorf("query has %d runes", n)
	}
	if got := e.video.queries[0]; got != out.Query {
		t.Errorf("provider saw %d runes", utf8.RuneCountInString(got))
	}
}

func TestInlineUsesStoredHandles(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	user := Caller{ID: 7}

	items := e.svc.Inline(ctx, user, "imagine dragons bones")
	if len(items) != 1 || items[0].Handle != "" || items[0].Candidate.ExternalID != "yt_bones" {
		t.Fatalf("before delivery = %+v", items)
	}
	if n, _ := e.history.CountByUser(ctx, 7, model.ActionSearch); n != 0 {
		t.Errorf("inline query recorded %d searches", n)
	}

	out, _ := e.svc.Search(ctx, user, "imagine dragons bones")
	got, err := e.svc.Select(ctx, user, 7, out.SessionID, 0)
	if err != nil || got.Status != StatusOK {
		t.Fatalf("delivery = %+v, %v", got, err)
	}

	items = e.svc.Inline(ctx, user, "imagine dragons bones")
	if len(items) != 1 || items[0].Handle != got.Result.Handle {
		t.Fatalf("from delivery cache = %+v", items)
	}

	// no cached handle at 320, the track index still has one
	items = e.svc.Inline(ctx, Caller{ID: 8, Premium: true, Quality: 320}, "imagine dragons bones")
	if len(items) != 1 || items[0].Handle != got.Result.Handle {
		t.Fatalf("from track index = %+v", items)
	}

	if items := e.svc.Inline(ctx, user, "   "); items != nil {
		t.Errorf("blank query = %+v", items)
	}
}

func TestInlineCapsResults(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	base := e.video.results[0]
	e.video.results = nil
	for i := 0; i < 8; i++ {
		c := base
		c.ExternalID = fmt.Sprintf("yt_%d", i)
		e.video.results = append(e.video.results, c)
	}

	if items := e.svc.Inline(ctx, Caller{ID: 1}, "bones"); len(items) != 5 {
		t.Fatalf("items = %d, want 5", len(items))
	}
}
