package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dasmlab/kashi/pkg/failure"
	"github.com/dasmlab/kashi/pkg/upstream"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultLRCLIBURL is the base URL of the public lyric search service.
	DefaultLRCLIBURL = "https://lrclib.net"
	lrclibProvider   = "lrclib"
)

// LRCLIBClient searches the public lyric database by track title.
type LRCLIBClient struct {
	baseURL string
	http    *upstream.Client
	logger  *logrus.Logger
}

// NewLRCLIBClient creates a client against baseURL (DefaultLRCLIBURL when
// empty).
func NewLRCLIBClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *LRCLIBClient {
	if baseURL == "" {
		baseURL = DefaultLRCLIBURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &LRCLIBClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    upstream.NewClient(lrclibProvider, timeout, logger),
		logger:  logger,
	}
}

// Search returns every candidate for track. The artist is deliberately not
// part of the query: matching on it is done by PickBestHit. A body that is
// valid JSON but not an array yields no candidates.
func (c *LRCLIBClient) Search(ctx context.Context, track string) ([]Candidate, error) {
	if track == "" {
		return nil, nil
	}

	searchURL := c.baseURL + "/api/search?track_name=" + url.QueryEscape(track)
	c.logger.WithField("url", searchURL).Debug("LRCLIB search")

	resp, err := c.http.Get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("search lyrics: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("search lyrics: %w", failure.Provider(resp.StatusText))
	}

	var body any
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("search lyrics: %w", failure.Wrap(failure.KindParse, "decode response", err))
	}

	var elems []json.RawMessage
	if _, isList := body.([]any); isList {
		if err := json.Unmarshal(resp.Body, &elems); err != nil {
			return nil, fmt.Errorf("search lyrics: %w", failure.Wrap(failure.KindParse, "decode response", err))
		}
	}

	c.logger.WithFields(logrus.Fields{
		"track": track,
		"count": len(elems),
	}).Debug("LRCLIB search result count")

	return decodeCandidates(elems), nil
}
