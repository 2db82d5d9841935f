// Package langdetect guesses the language of short headline text.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"horse.fit/bundlefeed/internal/language"
)

// minLetters is the smallest sample the detector is asked about.
const minLetters = 12

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Detect returns the ISO 639-1 code for text, or "" when the sample is too short or
// the detector has no confident answer.
func Detect(text string) string {
	sample := strings.Join(strings.Fields(text), " ")
	if countLetters(sample) < minLetters {
		return ""
	}

	detected, ok := getDetector().DetectLanguageOf(sample)
	if !ok {
		return ""
	}
	code := language.NormalizeCode(detected.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// DetectItem detects the language of a headline together with its blurb.
func DetectItem(title, blurb string) string {
	return Detect(strings.TrimSpace(title) + " " + strings.TrimSpace(blurb))
}

func countLetters(sample string) int {
	n := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}
