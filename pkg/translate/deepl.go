package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dasmlab/kashi/pkg/failure"
	"github.com/dasmlab/kashi/pkg/upstream"
	"github.com/sirupsen/logrus"
)

const deeplProvider = "deepl"

// DeepLClient implements the Translator interface using the DeepL REST API.
// The caller's key is passed through; it also selects the endpoint.
type DeepLClient struct {
	cfg    Config
	http   *upstream.Client
	logger *logrus.Logger
}

// NewDeepLClient creates a new DeepL client. Prefer NewTranslator, which
// fills in default endpoints.
func NewDeepLClient(cfg Config) *DeepLClient {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &DeepLClient{
		cfg:    cfg,
		http:   upstream.NewClient(deeplProvider, cfg.Timeout, cfg.Logger),
		logger: cfg.Logger,
	}
}

// translateRequest represents a DeepL API request.
type translateRequest struct {
	Text       json.RawMessage `json:"text"`
	TargetLang string          `json:"target_lang"`
}

// translateResponse represents a DeepL API response. Translations are kept
// raw so the caller receives them exactly as DeepL produced them.
type translateResponse struct {
	Translations json.RawMessage `json:"translations"`
}

// Translate sends one translation request.
func (c *DeepLClient) Translate(ctx context.Context, req Request) (json.RawMessage, error) {
	if req.APIKey == "" {
		return nil, failure.New(failure.KindInput, "apiKey is required")
	}
	if len(req.Text) == 0 {
		return nil, failure.New(failure.KindInput, "text is required")
	}

	target := req.TargetLang
	if target == "" {
		target = DefaultTargetLang
	}
	if _, err := ParseTarget(target); err != nil {
		// Unknown codes are forwarded unchanged.
		c.logger.WithError(err).WithField("target_lang", target).Debug("Target language is not a BCP 47 tag")
	}

	tier := TierForKey(req.APIKey)
	endpoint := c.cfg.EndpointForKey(req.APIKey)

	c.logger.WithFields(logrus.Fields{
		"tier":        tier,
		"target_lang": target,
		"text_bytes":  len(req.Text),
	}).Debug("Translating text with DeepL")

	header := http.Header{}
	header.Set("Authorization", "DeepL-Auth-Key "+req.APIKey)

	resp, err := c.http.PostJSON(ctx, endpoint, translateRequest{Text: req.Text, TargetLang: target}, header)
	if err != nil {
		return nil, fmt.Errorf("deepl: %w", err)
	}

	// Check status code
	if !resp.OK() {
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"tier":        tier,
		}).Error("DeepL API returned non-OK status")
		return nil, fmt.Errorf("deepl: %w", failure.Provider(resp.StatusText))
	}

	var dlResp translateResponse
	if err := json.Unmarshal(resp.Body, &dlResp); err != nil {
		c.logger.WithError(err).Error("Failed to decode DeepL response")
		return nil, fmt.Errorf("deepl: %w", failure.Wrap(failure.KindParse, "decode response", err))
	}

	c.logger.WithFields(logrus.Fields{
		"tier":        tier,
		"target_lang": target,
	}).Info("Translation completed successfully")

	return dlResp.Translations, nil
}

// CheckHealth always succeeds. DeepL has no unauthenticated probe and the
// key arrives with each request, so there is nothing to check at startup.
func (c *DeepLClient) CheckHealth(ctx context.Context) error {
	c.logger.Debug("DeepL health check skipped: keys are supplied per request")
	return nil
}
