package yandex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zorins376-hub/music-bot/core/provider"
	"github.com/zorins376-hub/music-bot/model"
)

func newTestClient(t *testing.T, handler http.Handler, tokens ...string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(NewTokenPool(tokens))
	c.SetBaseURL(srv.URL)
	c.fileScheme = "http"
	return c, srv
}

func TestSearchParsesTracks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "OAuth tok" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Query().Get("text") != "bones" || r.URL.Query().Get("type") != "track" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"result":{"tracks":{"results":[
			{"id":"101","title":"Bones","durationMs":165000,"artists":[{"name":"Imagine Dragons"}],"albums":[{"year":2022}]},
			{"id":102,"title":"Gone","durationMs":1000,"available":false,"artists":[]},
			{"id":103,"title":"Duet","durationMs":200500,"artists":[{"name":"A"},{"name":"B"}],"albums":[]}
		]}}}`)
	})
	c, _ := newTestClient(t, mux, "tok")

	got, err := NewProvider(c).Search(context.Background(), "bones", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 candidates, got %d", len(got))
	}
	first := got[0]
	if first.ExternalID != "ym_101" || first.Source != model.SourcePaid || first.ReleaseYear != 2022 {
		t.Errorf("unexpected first candidate %+v", first)
	}
	if first.DurationSeconds != 165 || first.DurationFormatted != "2:45" {
		t.Errorf("duration = %d %q", first.DurationSeconds, first.DurationFormatted)
	}
	if ref, ok := first.Locator.(model.CatalogRef); !ok || ref.TrackID != 101 {
		t.Errorf("locator = %#v", first.Locator)
	}
	if got[1].Artist != "A, B" {
		t.Errorf("artist = %q", got[1].Artist)
	}
}

func TestSearchWithoutTokensIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	got, err := NewProvider(c).Search(context.Background(), "x", 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("want empty result and no error, got %v %v", got, err)
	}
}

func TestRejectedTokenIsSkipped(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		mu.Lock()
		seen = append(seen, auth)
		mu.Unlock()
		if auth == "OAuth bad" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"result":{"tracks":{"results":[]}}}`)
	})
	c, _ := newTestClient(t, mux, "bad", "good")

	if _, err := c.SearchTracks(context.Background(), "q", 5); err != nil {
		t.Fatalf("SearchTracks: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[1] != "OAuth good" {
		t.Fatalf("unexpected token order %v", seen)
	}
	// the rejected token stays benched
	if tok, _ := c.tokens.Next(); tok != "good" {
		t.Errorf("Next = %q, want good", tok)
	}
}

func TestAllTokensRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	c, _ := newTestClient(t, mux, "a")
	_, err := NewProvider(c).Search(context.Background(), "q", 5)
	if err == nil {
		t.Fatal("want error when every token is refused")
	}
}

func TestFetchDownloadsSignedURL(t *testing.T) {
	payload := strings.Repeat("A", 2048)
	var srvHost string
	mux := http.NewServeMux()
	mux.HandleFunc("/tracks/101/download-info", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		fmt.Fprintf(w, `{"result":[
			{"codec":"aac","bitrateInKbps":256,"downloadInfoUrl":"%[1]s/xml/aac"},
			{"codec":"mp3","bitrateInKbps":320,"downloadInfoUrl":"%[1]s/xml/320"},
			{"codec":"mp3","bitrateInKbps":192,"downloadInfoUrl":"%[1]s/xml/192"}
		]}`, base)
	})
	mux.HandleFunc("/xml/192", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="utf-8"?><download-info><host>%s</host><path>/rmusic/abc</path><ts>0005</ts><region>-1</region><s>salt</s></download-info>`, srvHost)
	})
	mux.HandleFunc("/xml/320", func(w http.ResponseWriter, r *http.Request) {
		t.Error("320 variant must not be chosen for 192 request")
	})
	mux.HandleFunc("/get-mp3/", func(w http.ResponseWriter, r *http.Request) {
		want := (&Client{fileScheme: "http"}).fileURL(downloadInfo{Host: srvHost, Path: "/rmusic/abc", TS: "0005", S: "salt"})
		if "http://"+r.Host+r.URL.Path != want {
			t.Errorf("signed url = %s, want %s", r.URL.Path, want)
		}
		fmt.Fprint(w, payload)
	})
	c, srv := newTestClient(t, mux, "tok")
	srvHost = strings.TrimPrefix(srv.URL, "http://")

	cand := model.Candidate{ExternalID: "ym_101", Locator: model.CatalogRef{TrackID: 101}}
	path, err := NewProvider(c).Fetch(context.Background(), cand, 192, t.TempDir())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != payload {
		t.Errorf("downloaded %d bytes, want %d", len(data), len(payload))
	}
	if filepath.Base(path) != "ym_101.mp3" {
		t.Errorf("path = %s", path)
	}
}

func TestFetchRejectsForeignLocator(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler(), "tok")
	_, err := NewProvider(c).Fetch(context.Background(), model.Candidate{Locator: model.VideoRef{VideoID: "x"}}, 192, t.TempDir())
	if err == nil {
		t.Fatal("want error for non-catalog locator")
	}
}

func TestFetchWithoutTokens(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	_, err := c.DownloadTrack(context.Background(), 1, 192, t.TempDir())
	if !errors.Is(err, provider.ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}

func TestPickVariant(t *testing.T) {
	vs := []downloadVariant{
		{Codec: "mp3", BitrateInKbps: 320, DownloadInfoURL: "u320"},
		{Codec: "mp3", BitrateInKbps: 192, DownloadInfoURL: "u192"},
		{Codec: "mp3", BitrateInKbps: 128, DownloadInfoURL: "u128"},
	}
	cases := map[int]string{320: "u320", 256: "u192", 192: "u192", 128: "u128", 64: "u128"}
	for bitrate, want := range cases {
		got, ok := pickVariant(vs, bitrate)
		if !ok || got.DownloadInfoURL != want {
			t.Errorf("bitrate %d: got %q, want %q", bitrate, got.DownloadInfoURL, want)
		}
	}
	if _, ok := pickVariant([]downloadVariant{{Codec: "aac", DownloadInfoURL: "x"}}, 192); ok {
		t.Error("aac only must not yield a variant")
	}
}

func TestTokenPoolRoundRobin(t *testing.T) {
	p := NewTokenPool([]string{"a", "b"})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	var order []string
	for i := 0; i < 4; i++ {
		tok, _ := p.Next()
		order = append(order, tok)
	}
	if strings.Join(order, "") != "abab" {
		t.Fatalf("order = %v", order)
	}

	p.Disable("a")
	for i := 0; i < 3; i++ {
		if tok, _ := p.Next(); tok != "b" {
			t.Fatalf("disabled token returned: %s", tok)
		}
	}
	now = now.Add(11 * time.Minute)
	seenA := false
	for i := 0; i < 2; i++ {
		if tok, _ := p.Next(); tok == "a" {
			seenA = true
		}
	}
	if !seenA {
		t.Error("token should return after its penalty")
	}

	p.Disable("a")
	p.Disable("b")
	if _, ok := p.Next(); ok {
		t.Error("want no token when all are disabled")
	}
}

func TestReadTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	if err := os.WriteFile(path, []byte("# pool\nt1\n\n  t2  \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTokenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "t1,t2" {
		t.Errorf("tokens = %v", got)
	}
}

func TestWatchTokenFileReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	if err := os.WriteFile(path, []byte("file1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	pool := NewTokenPool(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchTokenFile(ctx, path, []string{"static"}, pool) }()

	waitFor(t, func() bool { return pool.Len() == 2 })

	if err := os.WriteFile(path, []byte("file1\nfile2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return pool.Len() == 3 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("WatchTokenFile: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestChartWithoutTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/landing3/chart/russia", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("anonymous chart request carried %q", r.Header.Get("Authorization"))
		}
		fmt.Fprint(w, `{"result":{"chart":{"tracks":[
			{"track":{"id":1,"title":"Песня","durationMs":180000,"artists":[{"name":"Исполнитель"},{"name":"Feat"}]}},
			{"track":{"id":2,"title":"Mix","durationMs":3600000,"artists":[{"name":"DJ"}]}},
			{"track":null},
			{"track":{"id":3,"title":"Solo","durationMs":200000,"artists":[]}}
		]}}}`)
	})
	c, _ := newTestClient(t, mux)

	got, err := c.Chart(context.Background(), "russia")
	if err != nil {
		t.Fatalf("Chart: %v", err)
	}
	want := []model.ChartEntry{{Artist: "Исполнитель", Title: "Песня"}, {Artist: "Unknown", Title: "Solo"}}
	if len(got) != len(want) {
		t.Fatalf("Chart = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestChartUsesToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/landing3/chart/russia", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "OAuth tok" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"result":{"chart":{"tracks":[]}}}`)
	})
	c, _ := newTestClient(t, mux, "tok")
	if got, err := c.Chart(context.Background(), "russia"); err != nil || len(got) != 0 {
		t.Fatalf("Chart = %v %v", got, err)
	}
}
