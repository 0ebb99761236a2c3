package lyrics

import (
	"encoding/json"
	"strings"
	"unicode"
)

// Field aliases, in lookup order. Providers are not consistent about
// camelCase versus snake_case, so every accessor checks all known spellings.
var (
	syncedAliases  = []string{"syncedLyrics", "synced_lyrics"}
	plainAliases   = []string{"plainLyrics", "plain_lyrics", "plain_lyrics_text"}
	artistAliases  = []string{"artistName", "artist", "artist_name"}
	trackAliases   = []string{"trackName", "track", "track_name"}
	dynamicAliases = []string{"dynamic_lyrics", "dynamicLyrics"}
)

// Candidate is a loosely typed lyric record as returned by a provider:
// a search hit, or the primary service's response object. Values are kept
// raw so unknown fields can be passed through untouched.
type Candidate map[string]json.RawMessage

// SyncedLyrics returns the time-synced LRC text, or "".
func (c Candidate) SyncedLyrics() string { return c.firstString(syncedAliases) }

// PlainLyrics returns the unsynced lyric text, or "".
func (c Candidate) PlainLyrics() string { return c.firstString(plainAliases) }

// ArtistName returns the artist, or "".
func (c Candidate) ArtistName() string { return c.firstString(artistAliases) }

// TrackName returns the track title, or "".
func (c Candidate) TrackName() string { return c.firstString(trackAliases) }

// HasSynced reports whether any synced-lyrics alias holds text.
func (c Candidate) HasSynced() bool { return c.SyncedLyrics() != "" }

// HasPlain reports whether any plain-lyrics alias holds text.
func (c Candidate) HasPlain() bool { return c.PlainLyrics() != "" }

// DynamicLines returns the raw "lines" array of the dynamic lyric block and
// its decoded elements. ok is false unless the block holds a non-empty array.
func (c Candidate) DynamicLines() (raw json.RawMessage, lines []DynamicLine, ok bool) {
	for _, key := range dynamicAliases {
		var block struct {
			Lines json.RawMessage `json:"lines"`
		}
		if v, found := c[key]; !found || json.Unmarshal(v, &block) != nil {
			continue
		}

		var elems []json.RawMessage
		if json.Unmarshal(block.Lines, &elems) != nil || len(elems) == 0 {
			continue
		}

		lines = make([]DynamicLine, 0, len(elems))
		for _, elem := range elems {
			var line DynamicLine
			// Non-object entries carry nothing usable.
			if json.Unmarshal(elem, &line) != nil {
				continue
			}
			lines = append(lines, line)
		}
		return block.Lines, lines, true
	}
	return nil, nil, false
}

func (c Candidate) firstString(aliases []string) string {
	for _, key := range aliases {
		v, ok := c[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(v, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}

// NormalizeArtist lower-cases s and strips all whitespace so that
// "Ed Sheeran" and " ED SHEERAN " compare equal.
func NormalizeArtist(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// decodeCandidates turns a JSON array into candidates. Elements that are not
// objects become empty candidates so list positions are preserved.
func decodeCandidates(elems []json.RawMessage) []Candidate {
	out := make([]Candidate, len(elems))
	for i, elem := range elems {
		var c Candidate
		if json.Unmarshal(elem, &c) != nil {
			c = Candidate{}
		}
		out[i] = c
	}
	return out
}
