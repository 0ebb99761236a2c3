// Package registry talks to the LRCHub translation registry, where
// translated lyrics are looked up per source video and language, and where
// new translations are submitted.
package registry

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
	// DefaultURL is the base URL of the registry.
	DefaultURL = "https://lrchub.coreone.work"
	provider   = "lrchub-registry"

	// InvalidJSON is the failure message when a submission is answered with
	// something other than JSON.
	InvalidJSON = "Invalid JSON"

	previewLen = 100
)

// Source identifies the page a translation belongs to. YoutubeURL takes
// precedence over VideoID.
type Source struct {
	YoutubeURL string
	VideoID    string
}

// param returns the query/body key and value for the source, or empty
// strings when neither identifier is set.
func (s Source) param() (key, value string) {
	switch {
	case s.YoutubeURL != "":
		return "youtube_url", s.YoutubeURL
	case s.VideoID != "":
		return "video_id", s.VideoID
	default:
		return "", ""
	}
}

// Requested normalizes the language selection: langs when non-empty,
// otherwise lang alone, otherwise nothing.
func Requested(lang string, langs []string) []string {
	if len(langs) > 0 {
		return langs
	}
	if lang != "" {
		return []string{lang}
	}
	return []string{}
}

// Translations is the result of a lookup. LrcMap holds one entry for every
// requested language; Missing is the registry's own list of languages it
// has nothing for.
type Translations struct {
	LrcMap  map[string]string
	Missing []string
}

// Registration is the result of a submission. Raw is the parsed JSON body,
// or the body text as a JSON string when it was not JSON.
type Registration struct {
	OK  bool
	Raw json.RawMessage
}

// Client is the registry client.
type Client struct {
	baseURL string
	http    *upstream.Client
	logger  *logrus.Logger
}

// NewClient creates a registry client against baseURL (DefaultURL when
// empty).
func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    upstream.NewClient(provider, timeout, logger),
		logger:  logger,
	}
}

func (c *Client) endpoint() (*url.URL, error) {
	u, err := url.Parse(c.baseURL + "/api/translation")
	if err != nil {
		return nil, failure.Wrap(failure.KindInput, "build translation URL", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, failure.New(failure.KindInput, fmt.Sprintf("build translation URL: %q is not absolute", u.String()))
	}
	return u, nil
}

// Get fetches translations of source for langs. The HTTP status is not
// inspected; a body that is not JSON yields an empty result, not an error.
func (c *Client) Get(ctx context.Context, source Source, langs []string) (Translations, error) {
	u, err := c.endpoint()
	if err != nil {
		return Translations{}, err
	}

	q := u.Query()
	if key, value := source.param(); key != "" {
		q.Set(key, value)
	}
	for _, l := range langs {
		q.Add("lang", l)
	}
	u.RawQuery = q.Encode()

	c.logger.WithField("url", u.String()).Info("GET_TRANSLATION")

	resp, err := c.http.Get(ctx, u.String())
	if err != nil {
		return Translations{}, fmt.Errorf("get translation: %w", err)
	}

	result := Translations{LrcMap: map[string]string{}, Missing: []string{}}

	if !json.Valid(resp.Body) {
		c.logger.WithField("status_code", resp.StatusCode).Warn("Translation API response is not JSON")
		return result, nil
	}

	// Fields of the wrong shape count as absent.
	var body, translations map[string]json.RawMessage
	var missing []json.RawMessage
	_ = json.Unmarshal(resp.Body, &body)
	_ = json.Unmarshal(body["translations"], &translations)
	_ = json.Unmarshal(body["missing_langs"], &missing)

	for _, l := range langs {
		result.LrcMap[l] = stringValue(translations[l])
	}
	for _, m := range missing {
		if s := stringValue(m); s != "" {
			result.Missing = append(result.Missing, s)
		}
	}

	for lang, text := range result.LrcMap {
		c.logger.WithFields(logrus.Fields{
			"lang":    lang,
			"preview": preview(text),
		}).Debug("Translation preview")
	}
	return result, nil
}

// registerRequest is the submission body.
type registerRequest struct {
	Lang       string `json:"lang"`
	Lyrics     string `json:"lyrics"`
	YoutubeURL string `json:"youtube_url,omitempty"`
	VideoID    string `json:"video_id,omitempty"`
}

// Register submits lyrics as the lang translation of source. Success is
// decided only by a truthy "ok" field in the JSON answer. A non-JSON answer
// is returned as a ParseError together with the raw text.
func (c *Client) Register(ctx context.Context, source Source, lang, lyrics string) (Registration, error) {
	u, err := c.endpoint()
	if err != nil {
		return Registration{}, err
	}

	body := registerRequest{Lang: lang, Lyrics: lyrics}
	switch key, value := source.param(); key {
	case "youtube_url":
		body.YoutubeURL = value
	case "video_id":
		body.VideoID = value
	}

	c.logger.WithFields(logrus.Fields{
		"youtube_url": source.YoutubeURL,
		"video_id":    source.VideoID,
		"lang":        lang,
	}).Info("REGISTER_TRANSLATION")

	if detected, mismatch := detectMismatch(lang, lyrics); mismatch {
		c.logger.WithFields(logrus.Fields{
			"lang":     lang,
			"detected": detected,
		}).Warn("Submitted lyrics do not look like the declared language")
	}

	resp, err := c.http.PostJSON(ctx, u.String(), body, nil)
	if err != nil {
		return Registration{}, fmt.Errorf("register translation: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		c.logger.WithError(err).WithField("status_code", resp.StatusCode).Warn("REGISTER_TRANSLATION non-JSON response")
		raw, _ := json.Marshal(string(resp.Body))
		return Registration{Raw: raw}, failure.New(failure.KindParse, InvalidJSON)
	}

	ok := false
	if obj, isObj := parsed.(map[string]any); isObj {
		ok = truthy(obj["ok"])
	}
	return Registration{OK: ok, Raw: json.RawMessage(resp.Body)}, nil
}

func stringValue(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// truthy follows the loose boolean reading the registry's clients use:
// false, 0, "", null and absent are false; everything else is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > previewLen {
		return string(r[:previewLen])
	}
	return s
}
