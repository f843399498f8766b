package charts

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zorins376-hub/music-bot/core/httpclient"
	"github.com/zorins376-hub/music-bot/model"
)

const ldPage = `<html><head>
<script type="application/ld+json">[
 {"@type":"MusicRecording","name":"Сансара","byArtist":{"@type":"MusicGroup","name":"Баста"}},
 {"@type":"Song","name":"Life","byArtist":"Zivert"},
 {"@type":"WebPage","name":"Chart"},
 {"@type":"Song","name":"Сансара","byArtist":{"name":"Баста"}}
]</script>
</head><body><div class="chart__item"><span>Ignored</span><span>Песня</span></div></body></html>`

const cardPage = `<html><body>
<section class="chart">
  <div class="chart__item"><span class="pos">1</span><p>Баста</p><p>Сансара</p></div>
  <div class="chart__item"><span class="pos">2</span><p>Zivert</p><p>Life</p></div>
  <div class="chart__item"><p>Ёлка</p><a href="/x">https://example.com</a><p>Прованс</p></div>
</section>
</body></html>`

const dashedPage = `<html><body>
<ul><li>Баста — Сансара</li><li>Dua Lipa – Houdini</li><li>Zivert – Жизнь</li><li>Menu</li></ul>
</body></html>`

func TestParseChartPage(t *testing.T) {
	cases := []struct {
		name string
		page string
		want []model.ChartEntry
	}{
		{"json-ld", ldPage, []model.ChartEntry{{Artist: "Баста", Title: "Сансара"}, {Artist: "Zivert", Title: "Life"}}},
		{"cards", cardPage, []model.ChartEntry{{Artist: "Баста", Title: "Сансара"}, {Artist: "Ёлка", Title: "Прованс"}}},
		{"dashed lines", dashedPage, []model.ChartEntry{{Artist: "Баста", Title: "Сансара"}, {Artist: "Zivert", Title: "Жизнь"}}},
		{"nothing", `<html><body><p>Maintenance</p></body></html>`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseChartPage([]byte(tc.page))
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("entry %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestRusRadioTriesNextURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>soon</body></html>`)
	})
	mux.HandleFunc("/chart", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Language") == "" {
			t.Error("Accept-Language not sent")
		}
		fmt.Fprint(w, dashedPage)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewRusRadio(httpclient.New(httpclient.Options{}), srv.URL+"/broken", srv.URL+"/empty", srv.URL+"/chart")
	got, err := r.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
}
