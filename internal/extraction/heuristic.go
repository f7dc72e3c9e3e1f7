package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/leavelens/internal/leave"
)

// Extractor pulls leave fields out of cleaned letter text.
type Extractor struct {
	cfg   Config
	name  []*compiledPattern
	roll  []*compiledPattern
	date  []*compiledPattern
	stops map[string]bool
}

type compiledPattern struct {
	Pattern
	regex *regexp.Regexp
}

// New compiles cfg. Empty pattern lists and zero limits take the defaults.
func New(cfg Config) (*Extractor, error) {
	def := DefaultConfig()
	if len(cfg.NamePatterns) == 0 {
		cfg.NamePatterns = def.NamePatterns
	}
	if len(cfg.RollPatterns) == 0 {
		cfg.RollPatterns = def.RollPatterns
	}
	if len(cfg.DatePatterns) == 0 {
		cfg.DatePatterns = def.DatePatterns
	}
	if len(cfg.ReasonKeywords) == 0 {
		cfg.ReasonKeywords = def.ReasonKeywords
	}
	if len(cfg.StopKeywords) == 0 {
		cfg.StopKeywords = def.StopKeywords
	}
	if cfg.NameStopWords == nil {
		cfg.NameStopWords = def.NameStopWords
	}
	if cfg.MinLineLength == 0 {
		cfg.MinLineLength = def.MinLineLength
	}
	if cfg.MaxReasonLines == 0 {
		cfg.MaxReasonLines = def.MaxReasonLines
	}
	if cfg.MinReasonLength == 0 {
		cfg.MinReasonLength = def.MinReasonLength
	}

	e := &Extractor{cfg: cfg, stops: make(map[string]bool, len(cfg.NameStopWords))}
	var err error
	if e.name, err = compile(cfg.NamePatterns); err != nil {
		return nil, err
	}
	if e.roll, err = compile(cfg.RollPatterns); err != nil {
		return nil, err
	}
	if e.date, err = compile(cfg.DatePatterns); err != nil {
		return nil, err
	}
	for _, w := range cfg.NameStopWords {
		e.stops[strings.ToLower(w)] = true
	}
	return e, nil
}

func compile(patterns []Pattern) ([]*compiledPattern, error) {
	out := make([]*compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.Name, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("pattern %q: needs a capture group", p.Name)
		}
		out = append(out, &compiledPattern{Pattern: p, regex: re})
	}
	return out, nil
}

// Extract returns the record for text, which should already be cleaned
// with CleanText. Reason is always set; the other fields are nil when not
// found. RawText is text itself.
func (e *Extractor) Extract(text string) leave.Record {
	rec := leave.Record{RawText: text}
	if name := e.findName(text); name != "" {
		rec.StudentName = &name
	}
	if roll := firstMatch(e.roll, text); roll != "" {
		rec.RollNumber = &roll
	}
	if date := firstMatch(e.date, text); date != "" {
		rec.Date = &date
	}
	reason := e.findReason(text)
	rec.Reason = &reason
	return rec
}

// firstMatch returns the first capture of the first pattern that matches.
func firstMatch(patterns []*compiledPattern, text string) string {
	for _, p := range patterns {
		if m := p.regex.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

// findName tries each name pattern, trimming trailing label words. A
// capture that is only label words is skipped.
func (e *Extractor) findName(text string) string {
	for _, p := range e.name {
		m := p.regex.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if name := e.trimNameTail(m[1]); name != "" {
			return name
		}
	}
	return ""
}

func (e *Extractor) trimNameTail(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		if e.stops[strings.ToLower(w)] {
			words = words[:i]
			break
		}
	}
	if len(words) < 2 {
		return ""
	}
	return strings.Join(words, " ")
}

// findReason collects up to MaxReasonLines lines starting at the first line
// containing a reason keyword. Lines shorter than MinLineLength are skipped.
// A stop keyword ends the block once it has started; before that, lines
// with stop keywords (letter headers such as "Date:") are skipped.
func (e *Extractor) findReason(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if len([]rune(lower)) < e.cfg.MinLineLength {
			continue
		}
		if containsAny(lower, e.cfg.StopKeywords) {
			if len(lines) > 0 {
				break
			}
			continue
		}
		if len(lines) > 0 || containsAny(lower, e.cfg.ReasonKeywords) {
			lines = append(lines, line)
			if len(lines) == e.cfg.MaxReasonLines {
				break
			}
		}
	}

	reason := strings.Join(lines, " ")
	if len([]rune(reason)) < e.cfg.MinReasonLength {
		reason = middle(text)
	}
	return cleanLine(reason)
}

// middle returns the second and third quarters of text.
func middle(text string) string {
	r := []rune(text)
	return string(r[len(r)/4 : 3*len(r)/4])
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
