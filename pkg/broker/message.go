package broker

import (
	"encoding/json"
	"fmt"

	"github.com/dasmlab/kashi/pkg/failure"
)

// RequestType tags the operation a message asks for.
type RequestType string

const (
	TypeTranslate           RequestType = "TRANSLATE"
	TypeGetLyrics           RequestType = "GET_LYRICS"
	TypeGetTranslation      RequestType = "GET_TRANSLATION"
	TypeRegisterTranslation RequestType = "REGISTER_TRANSLATION"
)

// Known reports whether t is one of the supported operations.
func (t RequestType) Known() bool {
	switch t {
	case TypeTranslate, TypeGetLyrics, TypeGetTranslation, TypeRegisterTranslation:
		return true
	}
	return false
}

// Request is one inbound message. Payload is decoded according to Type.
type Request struct {
	Type    RequestType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeRequest parses a message envelope.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, failure.Wrap(failure.KindInput, "decode message", err)
	}
	return req, nil
}

// TranslatePayload is the TRANSLATE payload. Text is forwarded unmodified.
type TranslatePayload struct {
	Text       json.RawMessage `json:"text"`
	APIKey     string          `json:"apiKey"`
	TargetLang string          `json:"targetLang,omitempty"`
}

// LyricsPayload is the GET_LYRICS payload.
type LyricsPayload struct {
	Track      string `json:"track"`
	Artist     string `json:"artist,omitempty"`
	YoutubeURL string `json:"youtube_url,omitempty"`
	VideoID    string `json:"video_id,omitempty"`
}

// TranslationPayload is the GET_TRANSLATION payload. Lang is shorthand for
// a one-element Langs.
type TranslationPayload struct {
	YoutubeURL string   `json:"youtube_url,omitempty"`
	VideoID    string   `json:"video_id,omitempty"`
	Lang       string   `json:"lang,omitempty"`
	Langs      LangList `json:"langs,omitempty"`
}

// RegisterPayload is the REGISTER_TRANSLATION payload.
type RegisterPayload struct {
	YoutubeURL string `json:"youtube_url,omitempty"`
	VideoID    string `json:"video_id,omitempty"`
	Lang       string `json:"lang"`
	Lyrics     string `json:"lyrics"`
}

// LangList is a list of language codes that tolerates sloppy input: a value
// that is not an array decodes as an empty list and non-string elements are
// skipped.
type LangList []string

func (l *LangList) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if json.Unmarshal(data, &elems) != nil {
		*l = nil
		return nil
	}
	out := make(LangList, 0, len(elems))
	for _, elem := range elems {
		var s string
		if json.Unmarshal(elem, &s) == nil && s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

func decodePayload(req Request, into any) error {
	if len(req.Payload) == 0 || string(req.Payload) == "null" {
		return failure.New(failure.KindInput, fmt.Sprintf("%s: payload is required", req.Type))
	}
	if err := json.Unmarshal(req.Payload, into); err != nil {
		return failure.Wrap(failure.KindInput, fmt.Sprintf("%s: decode payload", req.Type), err)
	}
	return nil
}

// Response is the single reply to a message.
type Response interface {
	Succeeded() bool
}

// Status carries the fields every response shares.
type Status struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Succeeded reports the success flag.
func (s Status) Succeeded() bool { return s.Success }

// TranslateResponse answers TRANSLATE.
type TranslateResponse struct {
	Status
	Translations json.RawMessage `json:"translations,omitempty"`
}

// LyricsResponse answers GET_LYRICS. DynamicLines is null when the primary
// service did not provide any.
type LyricsResponse struct {
	Status
	Lyrics       string          `json:"lyrics"`
	DynamicLines json.RawMessage `json:"dynamicLines"`
}

// TranslationResponse answers GET_TRANSLATION.
type TranslationResponse struct {
	Status
	LrcMap  map[string]string `json:"lrcMap"`
	Missing []string          `json:"missing"`
}

// RegisterResponse answers REGISTER_TRANSLATION. Raw is attached on success
// and on an unparsable answer.
type RegisterResponse struct {
	Status
	Raw json.RawMessage `json:"raw,omitempty"`
}
