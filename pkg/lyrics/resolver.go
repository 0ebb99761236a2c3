// Package lyrics resolves lyric text for a track. It asks the primary LRCHub
// service first and falls back to an LRCLIB title search, choosing the best
// hit by artist.
package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dasmlab/kashi/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// Source names the provider that produced a result.
type Source string

const (
	SourceLRCHub Source = "lrchub"
	SourceLRCLIB Source = "lrclib"
	SourceNone   Source = "none"
)

// PrimaryLookup is the primary lyrics service.
type PrimaryLookup interface {
	Lookup(ctx context.Context, q Query) (PrimaryResult, error)
}

// Searcher is the title-only fallback search.
type Searcher interface {
	Search(ctx context.Context, track string) ([]Candidate, error)
}

// Result is the outcome of a lyric resolution.
type Result struct {
	Found        bool
	Lyrics       string
	DynamicLines json.RawMessage
	Source       Source
}

// Resolver chains the primary lookup and the fallback search.
type Resolver struct {
	primary  PrimaryLookup
	fallback Searcher
	logger   *logrus.Logger
}

// NewResolver creates a resolver.
func NewResolver(primary PrimaryLookup, fallback Searcher, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Resolve runs the primary lookup and, only when it yields blank text, the
// fallback search. Only a failure to reach the primary service is returned
// as an error; fallback failures count as "no lyrics".
func (r *Resolver) Resolve(ctx context.Context, q Query) (Result, error) {
	primary, err := r.primary.Lookup(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("lrchub: %w", err)
	}

	if strings.TrimSpace(primary.Lyrics) != "" {
		r.logger.WithFields(logrus.Fields{
			"track":         q.Track,
			"dynamic_lines": primary.DynamicLines != nil,
		}).Info("Using LRCHub lyrics")
		metrics.RecordLyricsSource(string(SourceLRCHub))
		return Result{
			Found:        true,
			Lyrics:       primary.Lyrics,
			DynamicLines: primary.DynamicLines,
			Source:       SourceLRCHub,
		}, nil
	}

	r.logger.WithField("track", q.Track).Info("LRCHub empty, falling back to LRCLIB")
	lyrics := r.searchFallback(ctx, q)

	result := Result{
		Found:  lyrics != "",
		Lyrics: lyrics,
		Source: SourceNone,
	}
	if result.Found {
		result.Source = SourceLRCLIB
	}
	metrics.RecordLyricsSource(string(result.Source))
	return result, nil
}

func (r *Resolver) searchFallback(ctx context.Context, q Query) string {
	candidates, err := r.fallback.Search(ctx, q.Track)
	if err != nil {
		r.logger.WithError(err).WithField("track", q.Track).Warn("LRCLIB search failed")
		return ""
	}

	hit, ok := PickBestHit(candidates, q.Artist)
	if !ok {
		return ""
	}

	text := hit.SyncedLyrics()
	if text == "" {
		text = hit.PlainLyrics()
	}

	r.logger.WithFields(logrus.Fields{
		"track_name":  hit.TrackName(),
		"artist_name": hit.ArtistName(),
		"candidates":  len(candidates),
	}).Info("LRCLIB chosen track")

	return strings.TrimSpace(text)
}
