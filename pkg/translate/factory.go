package translate

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Tier is the DeepL account tier a key belongs to.
type Tier string

const (
	// TierFree keys end in ":fx" and must use the free endpoint.
	TierFree Tier = "free"
	// TierPro is every other key.
	TierPro Tier = "pro"

	freeKeySuffix = ":fx"

	DefaultFreeURL = "https://api-free.deepl.com/v2/translate"
	DefaultProURL  = "https://api.deepl.com/v2/translate"
)

// TierForKey selects the account tier from the key's suffix.
func TierForKey(apiKey string) Tier {
	if strings.HasSuffix(apiKey, freeKeySuffix) {
		return TierFree
	}
	return TierPro
}

// Config holds configuration for creating a Translator instance.
type Config struct {
	// FreeURL is the translate endpoint for free-tier keys.
	// Defaults to DefaultFreeURL.
	FreeURL string
	// ProURL is the translate endpoint for paid keys.
	// Defaults to DefaultProURL.
	ProURL string
	// Timeout bounds each provider request. Zero means no timeout.
	Timeout time.Duration
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// EndpointForKey returns the endpoint that accepts apiKey.
func (cfg Config) EndpointForKey(apiKey string) string {
	if TierForKey(apiKey) == TierFree {
		return cfg.FreeURL
	}
	return cfg.ProURL
}

// NewTranslator creates the DeepL translator described by cfg.
func NewTranslator(cfg Config) Translator {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.FreeURL == "" {
		cfg.FreeURL = DefaultFreeURL
	}
	if cfg.ProURL == "" {
		cfg.ProURL = DefaultProURL
	}

	cfg.Logger.WithFields(logrus.Fields{
		"free_url": cfg.FreeURL,
		"pro_url":  cfg.ProURL,
		"timeout":  cfg.Timeout.String(),
	}).Info("Creating translator instance")

	return NewDeepLClient(cfg)
}
