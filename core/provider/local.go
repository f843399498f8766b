package provider

import (
	"context"

	"github.com/zorins376-hub/music-bot/model"
)

// TrackFinder is the part of the track repository the local index needs.
type TrackFinder interface {
	FindLocal(ctx context.Context, query string, limit int) ([]model.Track, error)
}

// Local searches tracks the bot already holds a file handle for.
type Local struct {
	tracks TrackFinder
}

func NewLocal(tracks TrackFinder) *Local {
	return &Local{tracks: tracks}
}

func (l *Local) Source() model.Source {
	return model.SourceLocal
}

func (l *Local) Search(ctx context.Context, query string, limit int) ([]model.Candidate, error) {
	tracks, err := l.tracks.FindLocal(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Candidate, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, model.Candidate{
			ExternalID:        t.ExternalID,
			Title:             t.Title,
			Artist:            t.Artist,
			DurationSeconds:   t.Duration,
			DurationFormatted: model.FormatDuration(t.Duration),
			Source:            model.SourceLocal,
			DeliveryHandle:    t.FileID,
			ReleaseYear:       t.ReleaseYear,
			Locator:           model.LocalRef{},
		})
	}
	return out, nil
}
