package services

import (
	"regexp"
	"strings"
	"unicode"
)

// SpamDetector decides whether submission text looks like spam. It is an
// interface so pattern sets can be swapped without touching the guard's
// orchestration.
type SpamDetector interface {
	// Detect returns whether the text matched and a short description of
	// what matched, for audit context.
	Detect(text string) (bool, string)
}

// PatternSpamDetector combines a phrase pattern list with an upper-case
// ratio check. The ratio check only applies above a length floor to avoid
// false positives on short strings ("OK", "ASAP").
type PatternSpamDetector struct {
	patterns      []*regexp.Regexp
	minCapsLength int
	maxUpperRatio float64
}

// NewPatternSpamDetector creates a detector with the default phrase list.
func NewPatternSpamDetector() *PatternSpamDetector {
	return &PatternSpamDetector{
		patterns:      defaultSpamPatterns(),
		minCapsLength: 40,
		maxUpperRatio: 0.7,
	}
}

func defaultSpamPatterns() []*regexp.Regexp {
	raw := []string{
		`(?i)\bviagra\b`,
		`(?i)\bcialis\b`,
		`(?i)\bcasino\b`,
		`(?i)\bfree\s+money\b`,
		`(?i)\bmake\s+money\s+fast\b`,
		`(?i)\bwork\s+from\s+home\b`,
		`(?i)\bcheap\s+(pills|meds|loans?)\b`,
		`(?i)\bclick\s+here\b`,
		`(?i)\blimited\s+time\s+offer\b`,
		`(?i)\bcrypto\s+(giveaway|doubl)`,
		`(?i)(https?://\S+\s*){4,}`, // link stuffing
	}
	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		patterns = append(patterns, regexp.MustCompile(p))
	}
	return patterns
}

func (d *PatternSpamDetector) Detect(text string) (bool, string) {
	for _, pattern := range d.patterns {
		if pattern.MatchString(text) {
			return true, "pattern: " + pattern.String()
		}
	}

	if ratio, ok := upperCaseRatio(text, d.minCapsLength); ok && ratio > d.maxUpperRatio {
		return true, "excessive upper-case ratio"
	}
	return false, ""
}

// upperCaseRatio returns the share of letters that are upper-case. ok is
// false when the text has fewer letters than the floor.
func upperCaseRatio(text string, minLength int) (float64, bool) {
	letters := 0
	upper := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < minLength {
		return 0, false
	}
	return float64(upper) / float64(letters), true
}

// joinFieldText flattens submission field values into one text blob for
// content heuristics.
func joinFieldText(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	values := make([]string, 0, len(fields))
	for _, v := range fields {
		values = append(values, v)
	}
	return strings.Join(values, "\n")
}
