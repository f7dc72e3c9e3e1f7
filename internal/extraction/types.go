package extraction

// Pattern is a named regular expression whose first capture group holds
// the field value.
type Pattern struct {
	Name  string `koanf:"name"`
	Regex string `koanf:"regex"`
}

// Config holds the extraction heuristics.
type Config struct {
	NamePatterns []Pattern `koanf:"name_patterns"`
	RollPatterns []Pattern `koanf:"roll_patterns"`
	DatePatterns []Pattern `koanf:"date_patterns"`

	// ReasonKeywords start the reason block.
	ReasonKeywords []string `koanf:"reason_keywords"`
	// StopKeywords end the reason block at the sign-off.
	StopKeywords []string `koanf:"stop_keywords"`
	// NameStopWords cut a captured name where a following label begins,
	// as in "Priya Sharma Roll No".
	NameStopWords []string `koanf:"name_stop_words"`

	// MinLineLength skips shorter lines when looking for the reason.
	MinLineLength int `koanf:"min_line_length"`
	// MaxReasonLines caps the reason block.
	MaxReasonLines int `koanf:"max_reason_lines"`
	// MinReasonLength triggers the middle-of-text fallback.
	MinReasonLength int `koanf:"min_reason_length"`
}

// DefaultConfig returns the standard heuristics.
func DefaultConfig() Config {
	return Config{
		NamePatterns: DefaultNamePatterns(),
		RollPatterns: DefaultRollPatterns(),
		DatePatterns: DefaultDatePatterns(),
		ReasonKeywords: []string{
			"leave", "absent", "unable", "request", "permission", "due to", "because",
		},
		StopKeywords: []string{
			"respectfully", "yours", "sincerely", "signature", "date:", "name:",
		},
		NameStopWords:   []string{"Roll", "Reg", "Register", "Class", "Section", "Dept", "Department", "Year"},
		MinLineLength:   10,
		MaxReasonLines:  5,
		MinReasonLength: 20,
	}
}

// nameWords matches two to four capitalised words on one line.
const nameWords = `([A-Z][a-zA-Z]+(?:[ \t]+[A-Z][a-zA-Z]+){1,3})`

// DefaultNamePatterns returns the student name patterns, most specific
// first.
func DefaultNamePatterns() []Pattern {
	return []Pattern{
		{Name: "labelled", Regex: `(?i:\b(?:name of student|student name|name))[ \t]*[:\-]?[ \t]*` + nameWords},
		{Name: "self_introduction", Regex: `(?i:\bi|this is to inform)[ \t,]+` + nameWords},
		{Name: "before_roll", Regex: `([A-Z][a-zA-Z]+[ \t]+[A-Z][a-zA-Z]+)[ \t,]+(?i:roll)`},
	}
}

// DefaultRollPatterns returns the roll number patterns. A roll number must
// contain a digit.
func DefaultRollPatterns() []Pattern {
	return []Pattern{
		{Name: "labelled", Regex: `(?i)\b(?:roll[ \t]+number|roll[ \t]+no|reg[ \t]+no|roll)\.?[ \t]*[:\-]?[ \t]*([A-Z0-9\-]*[0-9][A-Z0-9\-]*)`},
		{Name: "code", Regex: `(?i)\b([A-Z]{2,}[0-9]{2,}[A-Z0-9]*)\b`},
	}
}

// DefaultDatePatterns returns numeric and month-name date patterns.
func DefaultDatePatterns() []Pattern {
	return []Pattern{
		{Name: "numeric", Regex: `\b([0-9]{1,2}[-/][0-9]{1,2}[-/][0-9]{2,4})\b`},
		{Name: "month_name", Regex: `(?i)\b([0-9]{1,2}(?:st|nd|rd|th)?[ \t]+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[ \t,]+[0-9]{2,4})\b`},
	}
}
