// Package translate proxies text translation requests to DeepL.
package translate

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/text/language"
)

// DefaultTargetLang is used when the caller does not name a target language.
const DefaultTargetLang = "JA"

// Request is a single translation call. Text is forwarded to the provider
// exactly as the caller sent it (a string or a list of strings).
type Request struct {
	Text       json.RawMessage
	APIKey     string
	TargetLang string
}

// Translator defines the interface for translation backends.
type Translator interface {
	// Translate returns the provider's translation list unmodified.
	Translate(ctx context.Context, req Request) (json.RawMessage, error)

	// CheckHealth verifies that the backend is usable.
	CheckHealth(ctx context.Context) error
}

// ParseTarget interprets a DeepL target code such as "JA", "EN-GB" or
// "PT-BR" as a BCP 47 tag. DeepL codes are upper-case; the tag parser is
// case-insensitive, so the code is passed through as-is.
func ParseTarget(code string) (language.Tag, error) {
	return language.Parse(strings.TrimSpace(code))
}
