package speech

import (
	"strings"
	"unicode"
)

// Short words accepted even though they fall under the minimum length.
var shortAllowlist = map[string]struct{}{
	"si": {},
	"sí": {},
	"no": {},
	"ok": {},
}

// Filler noises the recognizer tends to emit on background sound.
var noiseWords = map[string]struct{}{
	"ah":  {},
	"eh":  {},
	"um":  {},
	"uh":  {},
	"mm":  {},
	"hmm": {},
}

// ValidTranscript reports whether a final transcript is worth dispatching.
// It strips everything except letters, digits and spaces, then rejects
// fragments that are too short or pure filler noise.
func ValidTranscript(text string) bool {
	cleaned := cleanTranscript(text)
	if cleaned == "" {
		return false
	}

	lower := strings.ToLower(cleaned)
	if _, ok := shortAllowlist[lower]; ok {
		return true
	}
	if _, ok := noiseWords[lower]; ok {
		return false
	}
	return len([]rune(lower)) >= 3
}

func cleanTranscript(text string) string {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
