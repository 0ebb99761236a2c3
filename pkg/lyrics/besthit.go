package lyrics

import "strings"

type artistMatch func(candidate, target string) bool

func exactArtist(candidate, target string) bool {
	return candidate != "" && candidate == target
}

func partialArtist(candidate, target string) bool {
	return candidate != "" && (strings.Contains(candidate, target) || strings.Contains(target, candidate))
}

// PickBestHit selects the most relevant candidate from a title-only search.
//
// With a non-empty artist the tiers are, in order: exact artist with synced
// lyrics, exact artist with plain lyrics, substring artist (either direction)
// with synced lyrics, substring artist with plain lyrics. Artist comparison
// uses NormalizeArtist. Without an artist match the first candidate with
// synced lyrics wins, then the first with plain lyrics, then the first
// candidate. ok is false only for an empty list.
func PickBestHit(candidates []Candidate, artist string) (hit Candidate, ok bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	if target := NormalizeArtist(artist); target != "" {
		for _, match := range []artistMatch{exactArtist, partialArtist} {
			for _, hasLyrics := range []func(Candidate) bool{Candidate.HasSynced, Candidate.HasPlain} {
				for _, c := range candidates {
					if match(NormalizeArtist(c.ArtistName()), target) && hasLyrics(c) {
						return c, true
					}
				}
			}
		}
	}

	for _, c := range candidates {
		if c.HasSynced() {
			return c, true
		}
	}
	for _, c := range candidates {
		if c.HasPlain() {
			return c, true
		}
	}
	return candidates[0], true
}
