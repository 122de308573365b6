package speech

import "strings"

// Fingerprint is the cache identity of a speak request. Two fingerprints
// are equal exactly when the provider would synthesize identical audio,
// so pitch and rate are compared by exact value with no rounding and the
// only text normalization is whitespace trimming, matching how text is
// trimmed before it goes to the provider.
type Fingerprint struct {
	Text     string
	Voice    string
	Pitch    float64
	Rate     float64
	Language string
}

// NewFingerprint derives the cache key for a request. Leading and
// trailing whitespace on text is insignificant; everything else is.
func NewFingerprint(text, voice string, pitch, rate float64, language string) Fingerprint {
	return Fingerprint{
		Text:     strings.TrimSpace(text),
		Voice:    voice,
		Pitch:    pitch,
		Rate:     rate,
		Language: language,
	}
}
