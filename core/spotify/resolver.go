package spotify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

var trackURL = regexp.MustCompile(`https?://open\.spotify\.com/(?:intl-[a-z]{2}/)?track/([a-zA-Z0-9]{22})`)

// TrackID extracts the track id from a shared track link inside text.
func TrackID(text string) (string, bool) {
	m := trackURL.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Resolver turns shared track links into plain search queries. Audio is never
// fetched from the platform itself.
type Resolver struct {
	client *spotify.Client
}

// NewResolver returns a disabled resolver when credentials are missing.
func NewResolver(ctx context.Context, clientID, clientSecret string, opts ...spotify.ClientOption) *Resolver {
	if clientID == "" || clientSecret == "" {
		return &Resolver{}
	}
	return newResolver(ctx, &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}, opts...)
}

func newResolver(ctx context.Context, cfg *clientcredentials.Config, opts ...spotify.ClientOption) *Resolver {
	return &Resolver{client: spotify.New(cfg.Client(ctx), opts...)}
}

func (r *Resolver) Enabled() bool {
	return r != nil && r.client != nil
}

// Resolve returns "artist title" for a message holding a track link. ok is
// false when text has no link or the resolver is disabled.
func (r *Resolver) Resolve(ctx context.Context, text string) (query string, ok bool, err error) {
	id, found := TrackID(text)
	if !found || !r.Enabled() {
		return "", false, nil
	}
	track, err := r.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return "", false, fmt.Errorf("failed to get track %s: %w", id, err)
	}
	names := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	query = strings.TrimSpace(strings.Join(names, " ") + " " + track.Name)
	if query == "" {
		return "", false, nil
	}
	return query, true, nil
}
