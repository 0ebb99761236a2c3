package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dasmlab/kashi/pkg/upstream"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultLRCHubURL is the base URL of the primary lyrics service.
	DefaultLRCHubURL = "https://lrchub.coreone.work"
	lrchubProvider   = "lrchub"
)

// Query identifies the track whose lyrics are wanted. YoutubeURL and VideoID
// are alternative identifiers of the source page.
type Query struct {
	Track      string `json:"track,omitempty"`
	Artist     string `json:"artist,omitempty"`
	YoutubeURL string `json:"youtube_url,omitempty"`
	VideoID    string `json:"video_id,omitempty"`
}

// PrimaryResult is what the primary service produced. Lyrics is empty when
// it had nothing; DynamicLines is the raw dynamic line array when present,
// whether or not it was used to build Lyrics.
type PrimaryResult struct {
	Lyrics       string
	DynamicLines json.RawMessage
}

// LRCHubClient queries the primary lyrics service.
type LRCHubClient struct {
	baseURL string
	http    *upstream.Client
	logger  *logrus.Logger
}

// NewLRCHubClient creates a client against baseURL (DefaultLRCHubURL when
// empty).
func NewLRCHubClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *LRCHubClient {
	if baseURL == "" {
		baseURL = DefaultLRCHubURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &LRCHubClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    upstream.NewClient(lrchubProvider, timeout, logger),
		logger:  logger,
	}
}

// Lookup sends every identifying field to the service. Only transport
// failures are returned as errors; an unparsable or empty answer yields an
// empty result.
func (c *LRCHubClient) Lookup(ctx context.Context, q Query) (PrimaryResult, error) {
	resp, err := c.http.PostJSON(ctx, c.baseURL+"/api/lyrics", q, nil)
	if err != nil {
		return PrimaryResult{}, fmt.Errorf("lookup lyrics: %w", err)
	}

	result, err := parsePrimary(resp.Body)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
		}).Warn("Lyrics API response is not JSON, ignoring it")
		return PrimaryResult{}, nil
	}

	if result.Lyrics == "" {
		c.logger.WithField("track", q.Track).Info("LRCHub returned no lyrics text")
	}
	return result, nil
}

// parsePrimary extracts lyrics from a primary service body. The record may
// be wrapped in a top-level "response" object.
func parsePrimary(body []byte) (PrimaryResult, error) {
	var top Candidate
	if err := json.Unmarshal(body, &top); err != nil {
		return PrimaryResult{}, err
	}

	record := top
	if inner, ok := top["response"]; ok {
		var wrapped Candidate
		if json.Unmarshal(inner, &wrapped) == nil && wrapped != nil {
			record = wrapped
		}
	}

	var result PrimaryResult
	if synced := strings.TrimSpace(record.SyncedLyrics()); synced != "" {
		result.Lyrics = synced
	} else if plain := strings.TrimSpace(record.PlainLyrics()); plain != "" {
		result.Lyrics = plain
	}

	if raw, lines, ok := record.DynamicLines(); ok {
		result.DynamicLines = raw
		if result.Lyrics == "" {
			result.Lyrics = BuildLRC(lines)
		}
	}
	return result, nil
}
