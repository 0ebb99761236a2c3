package lyrics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// candidates decodes a JSON array literal into candidates.
func candidates(t *testing.T, src string) []Candidate {
	t.Helper()
	var elems []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(src), &elems))
	return decodeCandidates(elems)
}

func TestNormalizeArtist(t *testing.T) {
	for _, in := range []string{"Ed Sheeran", "edsheeran", " ED SHEERAN ", "Ed\tShee ran\n"} {
		assert.Equal(t, "edsheeran", NormalizeArtist(in), in)
	}
	assert.Equal(t, "", NormalizeArtist("   "))
}

func TestPickBestHit_Tiers(t *testing.T) {
	list := `[
		{"id": 0, "artistName": "Someone Else", "syncedLyrics": "[00:01.00] other"},
		{"id": 1, "artistName": "Ed Sheeran feat. X", "syncedLyrics": "[00:01.00] partial synced"},
		{"id": 2, "artistName": "Ed Sheeran feat. X", "plainLyrics": "partial plain"},
		{"id": 3, "artistName": "Ed Sheeran", "plainLyrics": "exact plain"},
		{"id": 4, "artist_name": "ED SHEERAN", "synced_lyrics": "[00:01.00] exact synced"}
	]`

	tests := []struct {
		name   string
		list   string
		artist string
		wantID string
	}{
		{name: "exact synced beats everything", list: list, artist: "Ed Sheeran", wantID: "4"},
		{name: "normalization is case and space insensitive", list: list, artist: " ED SHEERAN ", wantID: "4"},
		{name: "compact spelling", list: list, artist: "edsheeran", wantID: "4"},
		{
			name:   "exact plain beats partial synced",
			list:   `[{"id":1,"artist":"Ed Sheeran Band","syncedLyrics":"s"},{"id":2,"artist":"Ed Sheeran","plainLyrics":"p"}]`,
			artist: "Ed Sheeran",
			wantID: "2",
		},
		{
			name:   "partial synced beats partial plain",
			list:   `[{"id":1,"artistName":"Ed","plainLyrics":"p"},{"id":2,"artistName":"Ed Sheeran & Friends","syncedLyrics":"s"}]`,
			artist: "Ed Sheeran",
			wantID: "2",
		},
		{
			name:   "target contained in candidate and candidate in target",
			list:   `[{"id":1,"artistName":"Other","syncedLyrics":"s"},{"id":2,"artistName":"Sheeran","plainLyrics":"p"}]`,
			artist: "Ed Sheeran",
			wantID: "2",
		},
		{
			name:   "exact artist without lyrics is skipped",
			list:   `[{"id":1,"artistName":"Ed Sheeran"},{"id":2,"artistName":"Other","plainLyrics":"p"}]`,
			artist: "Ed Sheeran",
			wantID: "2",
		},
		{
			name:   "candidate without artist never matches by artist",
			list:   `[{"id":1,"plainLyrics":"p"},{"id":2,"syncedLyrics":"s"}]`,
			artist: "Ed Sheeran",
			wantID: "2",
		},
		{
			name:   "no artist prefers first synced",
			list:   `[{"id":1,"plainLyrics":"p"},{"id":2,"syncedLyrics":"s"},{"id":3,"syncedLyrics":"s"}]`,
			artist: "",
			wantID: "2",
		},
		{
			name:   "whitespace artist behaves like no artist",
			list:   `[{"id":1,"artistName":"A","plainLyrics":"p"},{"id":2,"artistName":"B","syncedLyrics":"s"}]`,
			artist: "   ",
			wantID: "2",
		},
		{
			name:   "first plain when nothing is synced",
			list:   `[{"id":1},{"id":2,"plain_lyrics":"p"}]`,
			artist: "Nobody",
			wantID: "2",
		},
		{
			name:   "first element when no lyrics at all",
			list:   `[{"id":1,"artistName":"A"},{"id":2,"artistName":"B"}]`,
			artist: "C",
			wantID: "1",
		},
		{
			name:   "empty strings are not lyrics",
			list:   `[{"id":1,"syncedLyrics":""},{"id":2,"syncedLyrics":"s"}]`,
			artist: "",
			wantID: "2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, ok := PickBestHit(candidates(t, tt.list), tt.artist)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, string(hit["id"]))
		})
	}
}

func TestPickBestHit_Empty(t *testing.T) {
	hit, ok := PickBestHit(nil, "anyone")
	assert.False(t, ok)
	assert.Nil(t, hit)

	hit, ok = PickBestHit([]Candidate{}, "")
	assert.False(t, ok)
	assert.Nil(t, hit)
}

func TestPickBestHit_NonObjectElementKeepsPosition(t *testing.T) {
	hit, ok := PickBestHit(candidates(t, `[42, {"artistName":"B"}]`), "")
	require.True(t, ok)
	assert.Empty(t, hit)
}

func TestCandidateAccessors(t *testing.T) {
	c := candidates(t, `[{
		"track": "Perfect",
		"artist_name": "Ed Sheeran",
		"syncedLyrics": "",
		"synced_lyrics": "[00:01.00] hi",
		"plain_lyrics_text": "hi",
		"plainLyrics": 12
	}]`)[0]

	assert.Equal(t, "Perfect", c.TrackName())
	assert.Equal(t, "Ed Sheeran", c.ArtistName())
	assert.Equal(t, "[00:01.00] hi", c.SyncedLyrics())
	assert.Equal(t, "hi", c.PlainLyrics())
	assert.True(t, c.HasSynced())
	assert.True(t, c.HasPlain())

	var empty Candidate
	assert.Equal(t, "", empty.SyncedLyrics())
	assert.False(t, empty.HasPlain())
}
