package extraction

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[^\S\n]+`)
	// disallowed keeps letters, digits, whitespace and basic punctuation.
	disallowed = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()\-'/]`)
	quotes     = strings.NewReplacer("\u2018", "'", "\u2019", "'", "\u201c", "", "\u201d", "")
)

// CleanText normalises OCR output line by line: runs of spaces and tabs
// collapse to one space, characters outside basic punctuation are removed,
// and blank lines are dropped. Line breaks are kept for reason detection.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = cleanLine(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// cleanLine cleans a single line. Newlines inside s become spaces.
func cleanLine(s string) string {
	s = quotes.Replace(s)
	s = disallowed.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = horizontalSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
