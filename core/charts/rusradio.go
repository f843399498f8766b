package charts

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zorins376-hub/music-bot/core/httpclient"
	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/model"

	"github.com/goccy/go-json"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const pageMaxEntries = 50

var rusRadioURLs = []string{
	"https://rusradio.ru/music/chart/",
	"https://rusradio.ru/charts/top-20/",
	"https://rusradio.ru/charts/",
}

var (
	cardClass   = regexp.MustCompile(`(?i)chart|track|song|music`)
	dashedLine  = regexp.MustCompile(`^([А-ЯЁA-Z][^—–\-]{1,40}?)\s*[—–]\s*(.{2,60})$`)
	onlyDigits  = regexp.MustCompile(`^\d+$`)
	hasLetterRe = regexp.MustCompile(`[А-Яа-яЁёA-Za-z]`)
)

// RusRadio scrapes the radio station's chart page. The markup changes
// often, so several layouts are tried in turn.
type RusRadio struct {
	http *httpclient.Client
	urls []string
}

func NewRusRadio(client *httpclient.Client, urls ...string) *RusRadio {
	if len(urls) == 0 {
		urls = rusRadioURLs
	}
	return &RusRadio{http: client, urls: urls}
}

func (r *RusRadio) Fetch(ctx context.Context) ([]model.ChartEntry, error) {
	header := http.Header{}
	header.Set("Accept", "text/html,application/xhtml+xml")
	header.Set("Accept-Language", "ru-RU,ru;q=0.9")

	var lastErr error
	for _, url := range r.urls {
		body, err := r.http.GetBytes(ctx, url, header)
		if err != nil {
			lastErr = err
			continue
		}
		entries, err := ParseChartPage(body)
		if err != nil {
			lastErr = err
			continue
		}
		if len(entries) > 0 {
			logger.Info("[Charts] radio chart parsed", logger.String("url", url), logger.Int("entries", len(entries)))
			return entries, nil
		}
		logger.Debug("[Charts] no entries on radio chart page", logger.String("url", url))
	}
	return nil, lastErr
}

// ParseChartPage extracts chart positions from a chart page: JSON-LD
// recordings first, then track cards, then dashed "Artist - Title" text lines.
func ParseChartPage(data []byte) ([]model.ChartEntry, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse chart page: %w", err)
	}
	for _, strategy := range []func(*html.Node, *entrySet){fromJSONLD, fromCards, fromDashedLines} {
		set := &entrySet{seen: make(map[string]bool)}
		strategy(doc, set)
		if len(set.entries) > 0 {
			return set.entries, nil
		}
	}
	return nil, nil
}

type entrySet struct {
	entries []model.ChartEntry
	seen    map[string]bool
}

func (s *entrySet) full() bool {
	return len(s.entries) >= pageMaxEntries
}

func (s *entrySet) add(artist, title string) {
	artist, title = strings.TrimSpace(artist), strings.TrimSpace(title)
	if artist == "" || title == "" || s.full() {
		return
	}
	if utf8.RuneCountInString(artist) > 80 || utf8.RuneCountInString(title) > 80 {
		return
	}
	key := strings.ToLower(artist) + "\t" + strings.ToLower(title)
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.entries = append(s.entries, model.ChartEntry{Artist: artist, Title: title})
}

type ldRecording struct {
	Type     string          `json:"@type"`
	Name     string          `json:"name"`
	ByArtist json.RawMessage `json:"byArtist"`
}

func (r ldRecording) artist() string {
	var named struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(r.ByArtist, &named) == nil && named.Name != "" {
		return named.Name
	}
	var plain string
	if json.Unmarshal(r.ByArtist, &plain) == nil {
		return plain
	}
	return ""
}

func fromJSONLD(doc *html.Node, set *entrySet) {
	walk(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Script || attr(n, "type") != "application/ld+json" {
			return true
		}
		raw := []byte(text(n))
		var items []ldRecording
		if err := json.Unmarshal(raw, &items); err != nil {
			var one ldRecording
			if json.Unmarshal(raw, &one) != nil {
				return false
			}
			items = []ldRecording{one}
		}
		for _, it := range items {
			if it.Type == "MusicRecording" || it.Type == "Song" {
				set.add(it.artist(), it.Name)
			}
		}
		return false
	})
}

// fromCards reads the innermost elements whose class names a chart item.
// The first two text lines of a card are the artist and the title.
func fromCards(doc *html.Node, set *entrySet) {
	walk(doc, func(n *html.Node) bool {
		if set.full() {
			return false
		}
		if !isCard(n) || hasCardInside(n) {
			return true
		}
		lines := textLines(n)
		if len(lines) < 2 {
			return true
		}
		if hasCyrillic(lines[0]) || hasCyrillic(lines[1]) {
			set.add(lines[0], lines[1])
			return false
		}
		return true
	})
}

func isCard(n *html.Node) bool {
	return n.Type == html.ElementNode && cardClass.MatchString(attr(n, "class"))
}

func hasCardInside(n *html.Node) bool {
	found := false
	for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
		walk(c, func(d *html.Node) bool {
			if found || isCard(d) {
				found = true
				return false
			}
			return true
		})
	}
	return found
}

func fromDashedLines(doc *html.Node, set *entrySet) {
	walk(doc, func(n *html.Node) bool {
		if set.full() {
			return false
		}
		if n.Type != html.TextNode {
			return true
		}
		m := dashedLine.FindStringSubmatch(strings.TrimSpace(n.Data))
		if m != nil && (hasCyrillic(m[1]) || hasCyrillic(m[2])) {
			set.add(m[1], m[2])
		}
		return true
	})
}

// walk visits nodes depth-first; fn returns false to skip a node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if n.Type == html.ElementNode && (n.DataAtom == atom.Style || n.DataAtom == atom.Noscript) {
		return
	}
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// textLines returns the visible text lines under n that can be a name.
func textLines(n *html.Node) []string {
	var lines []string
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && c.DataAtom == atom.Script {
			return false
		}
		if c.Type != html.TextNode {
			return true
		}
		for _, ln := range strings.Split(c.Data, "\n") {
			ln = strings.TrimSpace(ln)
			size := utf8.RuneCountInString(ln)
			if size < 2 || size > 80 || strings.HasPrefix(ln, "http") || onlyDigits.MatchString(ln) || !hasLetterRe.MatchString(ln) {
				continue
			}
			lines = append(lines, ln)
		}
		return true
	})
	return lines
}
