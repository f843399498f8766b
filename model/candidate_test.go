package model

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestCandidateJSONKeepsLocator(t *testing.T) {
	in := []Candidate{
		{ExternalID: "ym_42", Title: "Song", Artist: "Band", DurationSeconds: 200, Source: SourcePaid, Locator: CatalogRef{TrackID: 42}},
		{ExternalID: "yt_abc", Title: "Clip", DurationSeconds: 215, Source: SourceVideo, Locator: VideoRef{VideoID: "abc"}},
		{ExternalID: "vk_1_2", Title: "Rare", DurationSeconds: 90, Source: SourceSocial, Locator: DirectURLRef{URL: "https://cs.vk/x.mp3"}},
		{ExternalID: "tg_-100_5", Title: "House", DurationSeconds: 300, Source: SourceLocal, DeliveryHandle: "AgAD", Locator: LocalRef{}},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out []Candidate
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d candidates, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("candidate %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestCandidateUnknownKind(t *testing.T) {
	var c Candidate
	if err := json.Unmarshal([]byte(`{"id":"x","kind":"torrent"}`), &c); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{0: "0:00", 5: "0:05", 215: "3:35", 3600: "1:00:00", 3725: "1:02:05"}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestPlayable(t *testing.T) {
	for _, tc := range []struct {
		d    int
		want bool
	}{{0, false}, {-1, false}, {1, true}, {600, true}, {601, false}} {
		if got := (Candidate{DurationSeconds: tc.d}).Playable(600); got != tc.want {
			t.Errorf("Playable(%d) = %v, want %v", tc.d, got, tc.want)
		}
	}
}
