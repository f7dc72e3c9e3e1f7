package anomaly

// IdentityFallback controls how records without roll number and name are
// grouped for the repeated-excuse rule.
type IdentityFallback string

const (
	// IdentityShared puts all anonymous records under leave.UnknownIdentity.
	IdentityShared IdentityFallback = "shared"
	// IdentityPerRecord gives each anonymous record its own identity
	// token, "anonymous-<index>".
	IdentityPerRecord IdentityFallback = "per-record"
)

// Config holds the detection thresholds. The defaults are hand-tuned values
// kept for compatibility with earlier reports.
type Config struct {
	// HighSimilarity flags any pair at or above this cosine similarity.
	HighSimilarity float64 `koanf:"high_similarity"`
	// RepeatedSimilarity flags a two-submission identity at or above it.
	RepeatedSimilarity float64 `koanf:"repeated_similarity"`
	// RepeatedCount flags an identity with at least this many submissions.
	RepeatedCount int `koanf:"repeated_count"`
	// LargeGroupSize flags a same-date same-category group of this size.
	LargeGroupSize int `koanf:"large_group_size"`
	// VagueKeywordCount flags a reason containing this many vague keywords.
	VagueKeywordCount int `koanf:"vague_keyword_count"`
	// MinReasonLength flags reasons shorter than this many characters.
	MinReasonLength int `koanf:"min_reason_length"`
	// ExcerptLength truncates reasons quoted in findings.
	ExcerptLength int `koanf:"excerpt_length"`
	// RepresentativeLength truncates large-group and vague-reason quotes.
	RepresentativeLength int `koanf:"representative_length"`

	VagueKeywords  []string `koanf:"vague_keywords"`
	GenericPhrases []string `koanf:"generic_phrases"`

	IdentityFallback IdentityFallback `koanf:"identity_fallback"`
}

// DefaultVagueKeywords are counted in lowercased reasons.
var DefaultVagueKeywords = []string{
	"personal", "urgent", "important", "necessary", "unavoidable", "circumstances",
}

// DefaultGenericPhrases mark a reason as boilerplate.
var DefaultGenericPhrases = []string{
	"due to personal reasons", "due to unavoidable circumstances", "urgent work",
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		HighSimilarity:       0.85,
		RepeatedSimilarity:   0.75,
		RepeatedCount:        3,
		LargeGroupSize:       5,
		VagueKeywordCount:    2,
		MinReasonLength:      30,
		ExcerptLength:        100,
		RepresentativeLength: 150,
		VagueKeywords:        append([]string(nil), DefaultVagueKeywords...),
		GenericPhrases:       append([]string(nil), DefaultGenericPhrases...),
		IdentityFallback:     IdentityShared,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HighSimilarity == 0 {
		c.HighSimilarity = def.HighSimilarity
	}
	if c.RepeatedSimilarity == 0 {
		c.RepeatedSimilarity = def.RepeatedSimilarity
	}
	if c.RepeatedCount == 0 {
		c.RepeatedCount = def.RepeatedCount
	}
	if c.LargeGroupSize == 0 {
		c.LargeGroupSize = def.LargeGroupSize
	}
	if c.VagueKeywordCount == 0 {
		c.VagueKeywordCount = def.VagueKeywordCount
	}
	if c.MinReasonLength == 0 {
		c.MinReasonLength = def.MinReasonLength
	}
	if c.ExcerptLength == 0 {
		c.ExcerptLength = def.ExcerptLength
	}
	if c.RepresentativeLength == 0 {
		c.RepresentativeLength = def.RepresentativeLength
	}
	if c.VagueKeywords == nil {
		c.VagueKeywords = def.VagueKeywords
	}
	if c.GenericPhrases == nil {
		c.GenericPhrases = def.GenericPhrases
	}
	if c.IdentityFallback == "" {
		c.IdentityFallback = def.IdentityFallback
	}
	return c
}
