package charts

import (
	"context"

	"github.com/zorins376-hub/music-bot/core/httpclient"
	"github.com/zorins376-hub/music-bot/model"
)

// YandexCharts is the catalog client's chart endpoint.
type YandexCharts interface {
	Chart(ctx context.Context, id string) ([]model.ChartEntry, error)
}

// Sources are the upstreams the default charts are assembled from.
type Sources struct {
	HTTP     *httpclient.Client
	Yandex   YandexCharts
	Playlist func(url string) Fetcher
}

// Defaults returns the charts offered by the bot, each with its fallbacks.
func Defaults(src Sources) []Chart {
	apple := func(storefront string) Fetcher {
		return NewApple(src.HTTP, storefront)
	}
	playlists := func(cyrillicOnly bool, urls ...string) Chain {
		chain := make(Chain, 0, len(urls))
		for _, u := range urls {
			f := src.Playlist(u)
			if cyrillicOnly {
				f = Cyrillic(f)
			}
			chain = append(chain, Limit(f, pageMaxEntries))
		}
		return chain
	}
	yandexRussia := FetcherFunc(func(ctx context.Context) ([]model.ChartEntry, error) {
		return src.Yandex.Chart(ctx, "russia")
	})

	return []Chart{
		{
			Key:   "global",
			Label: "Apple Music Global Top",
			Fetcher: Chain{
				apple("us"),
				playlists(false,
					"https://www.youtube.com/playlist?list=PLDIoUOhQQPlXr63I_vwF9GD8sAKh77dWU",
					"https://www.youtube.com/playlist?list=PLhsz9CILh0673e1Hxlz54h0ldGpc4AMR0"),
			},
		},
		{
			Key:   "youtube",
			Label: "YouTube Music Top",
			Fetcher: playlists(false,
				"https://www.youtube.com/playlist?list=PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf",
				"https://www.youtube.com/playlist?list=PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI"),
		},
		{
			Key:   "russia",
			Label: "Yandex Top Russia",
			Fetcher: Chain{
				yandexRussia,
				Cyrillic(apple("ru")),
				playlists(true,
					"https://www.youtube.com/playlist?list=PLw-VjHDlEOgtYfGcmRbz3PS1MKx31KP-9",
					"https://www.youtube.com/playlist?list=PLw-VjHDlEOgs658kAHR_LAaILBXb-s6Q5"),
			},
		},
		{
			Key:   "rusradio",
			Label: "Russkoe Radio Top",
			Fetcher: Chain{
				NewRusRadio(src.HTTP),
				yandexRussia,
				Limit(Cyrillic(apple("ru")), 30),
			},
		},
		{
			Key:     "europa",
			Label:   "Europa Plus TOP40",
			Fetcher: Chain{apple("gb"), apple("de"), apple("us")},
		},
	}
}
