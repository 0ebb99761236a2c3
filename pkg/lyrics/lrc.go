package lyrics

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DynamicLine is one line of a dynamic (per-character) lyric block. Fields
// stay raw because providers send startTimeMs both as a number and as a
// numeric string.
type DynamicLine struct {
	StartTimeMs json.RawMessage `json:"startTimeMs,omitempty"`
	Text        json.RawMessage `json:"text,omitempty"`
	Chars       json.RawMessage `json:"chars,omitempty"`
}

// StartMs returns the line's start time in milliseconds. ok is false when
// the field is absent, null, or not numeric.
func (l DynamicLine) StartMs() (ms float64, ok bool) {
	raw := strings.TrimSpace(string(l.StartTimeMs))
	if raw == "" || raw == "null" {
		return 0, false
	}

	if err := json.Unmarshal(l.StartTimeMs, &ms); err == nil {
		return ms, finite(ms)
	}

	var s string
	if err := json.Unmarshal(l.StartTimeMs, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		// A blank numeric string reads as zero.
		return 0, true
	}
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return ms, finite(ms)
}

// Content returns the trimmed line text: the text field when it is a
// non-empty string, otherwise the characters of chars joined together.
func (l DynamicLine) Content() string {
	var text string
	if json.Unmarshal(l.Text, &text) == nil && text != "" {
		return strings.TrimSpace(text)
	}

	var chars []struct {
		C json.RawMessage `json:"c"`
	}
	if json.Unmarshal(l.Chars, &chars) != nil {
		return ""
	}
	var b strings.Builder
	for _, ch := range chars {
		var s string
		if json.Unmarshal(ch.C, &s) == nil {
			b.WriteString(s)
			continue
		}
		var n json.Number
		if json.Unmarshal(ch.C, &n) == nil {
			b.WriteString(n.String())
		}
	}
	return strings.TrimSpace(b.String())
}

// LRC renders the line as "[mm:ss.cc] text", or the bare tag when the line
// has no text. ok is false when the line has no usable start time.
func (l DynamicLine) LRC() (string, bool) {
	ms, ok := l.StartMs()
	if !ok {
		return "", false
	}
	tag := "[" + FormatTime(ms/1000) + "]"
	if text := l.Content(); text != "" {
		return tag + " " + text, true
	}
	return tag, true
}

// BuildLRC synthesizes LRC text from dynamic lines. Lines without a start
// time are dropped.
func BuildLRC(lines []DynamicLine) string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s, ok := line.LRC(); ok {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n")
}

// FormatTime formats seconds as an LRC "mm:ss.cc" timestamp. Negative and
// non-finite input is treated as zero; every component is floored.
func FormatTime(seconds float64) string {
	total := seconds
	if !finite(total) || total < 0 {
		total = 0
	}
	minutes := math.Floor(total / 60)
	secs := math.Floor(total - minutes*60)
	centis := math.Floor((total - minutes*60 - secs) * 100)
	return fmt.Sprintf("%02d:%02d.%02d", int64(minutes), int64(secs), int64(centis))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
