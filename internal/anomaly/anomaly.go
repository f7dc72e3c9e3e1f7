// Package anomaly flags suspicious patterns across a batch of leave
// requests: copied reasons, repeat submitters, large same-day groups and
// vague excuses.
package anomaly

// Kind identifies the rule that produced a finding.
type Kind string

const (
	KindHighSimilarity Kind = "high_similarity"
	KindRepeatedExcuse Kind = "repeated_excuse"
	KindLargeGroup     Kind = "large_group"
	KindVagueReason    Kind = "vague_reason"
)

// RiskLevel grades a finding.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Student identifies an implicated submitter. Date and Reason are only set
// where the finding shows them.
type Student struct {
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	Date       string `json:"date,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Excuse is one submission in a repeated-excuse finding.
type Excuse struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// Anomaly is a single finding. Type selects which of the optional fields
// are populated:
//
//   - high_similarity: Students (two), SimilarityScore
//   - repeated_excuse: Student, then Excuses and SimilarityScore (medium)
//     or ExcuseCount (high)
//   - large_group: Date, StudentCount, Students, AverageSimilarity,
//     RepresentativeReason
//   - vague_reason: Student, Reason, VagueKeywordCount, IsGeneric
//
// RecordIndices always lists the implicated input records.
type Anomaly struct {
	Type          Kind      `json:"type"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Description   string    `json:"description"`
	RecordIndices []int     `json:"record_indices"`

	Students        []Student `json:"students,omitempty"`
	Student         *Student  `json:"student,omitempty"`
	Excuses         []Excuse  `json:"excuses,omitempty"`
	SimilarityScore *float64  `json:"similarity_score,omitempty"`
	ExcuseCount     int       `json:"excuse_count,omitempty"`

	Date                 string   `json:"date,omitempty"`
	StudentCount         int      `json:"student_count,omitempty"`
	AverageSimilarity    *float64 `json:"average_similarity,omitempty"`
	RepresentativeReason string   `json:"representative_reason,omitempty"`

	Reason            string `json:"reason,omitempty"`
	VagueKeywordCount *int   `json:"vague_keyword_count,omitempty"`
	IsGeneric         *bool  `json:"is_generic,omitempty"`
}

// CountByRisk returns how many findings carry the given risk level.
func CountByRisk(anomalies []Anomaly, level RiskLevel) int {
	n := 0
	for _, a := range anomalies {
		if a.RiskLevel == level {
			n++
		}
	}
	return n
}
