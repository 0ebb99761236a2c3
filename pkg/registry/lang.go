package registry

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// baseCode reduces a language code to its lower-case primary subtag:
//   - "EN" -> "en"
//   - "pt-BR" -> "pt"
//   - "zh_Hant" -> "zh"
func baseCode(lang string) string {
	code := strings.ToLower(strings.TrimSpace(lang))
	if idx := strings.IndexAny(code, "-_"); idx >= 0 {
		code = code[:idx]
	}
	return code
}

// detectMismatch guesses the language of text and reports it when the guess
// is reliable and disagrees with the declared language. Timestamps are not
// stripped; the detector ignores digits and punctuation.
func detectMismatch(declared, text string) (detected string, mismatch bool) {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", false
	}
	detected = info.Lang.Iso6391()
	if detected == "" || baseCode(declared) == "" {
		return detected, false
	}
	return detected, detected != baseCode(declared)
}
