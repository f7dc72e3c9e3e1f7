package anomaly

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/leavelens/internal/cluster"
	"github.com/fyrsmithlabs/leavelens/internal/leave"
	"github.com/fyrsmithlabs/leavelens/internal/similarity"
)

// ErrShapeMismatch indicates that the similarity matrix or cluster
// assignment does not cover exactly the given records.
var ErrShapeMismatch = errors.New("anomaly: inputs do not cover the same records")

// unknownDate groups records without a date for the large-group rule.
const unknownDate = "unknown"

// Detector runs the four rule passes. It is stateless and safe for
// concurrent use.
type Detector struct {
	cfg Config
}

// New creates a Detector. Zero fields in cfg take their defaults.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Detect evaluates every rule and returns findings ordered by rule
// (similarity, repetition, group, vagueness) and then by record order.
func (d *Detector) Detect(records []leave.Record, sim *similarity.Matrix, clusters cluster.Assignment) ([]Anomaly, error) {
	n := len(records)
	if sim == nil || sim.Size() != n {
		return nil, fmt.Errorf("%w: %d records, similarity matrix covers %d", ErrShapeMismatch, n, matrixSize(sim))
	}
	if len(clusters) != n {
		return nil, fmt.Errorf("%w: %d records, %d cluster assignments", ErrShapeMismatch, n, len(clusters))
	}

	var out []Anomaly
	out = append(out, d.highSimilarity(records, sim)...)
	out = append(out, d.repeatedExcuses(records, sim)...)
	out = append(out, d.largeGroups(records, sim, clusters)...)
	out = append(out, d.vagueReasons(records)...)
	return out, nil
}

func (d *Detector) highSimilarity(records []leave.Record, sim *similarity.Matrix) []Anomaly {
	var out []Anomaly
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			score := sim.At(i, j)
			if score < d.cfg.HighSimilarity {
				continue
			}
			out = append(out, Anomaly{
				Type:          KindHighSimilarity,
				RiskLevel:     RiskHigh,
				Description:   fmt.Sprintf("Leave reasons are highly similar (similarity: %.2f)", score),
				RecordIndices: []int{i, j},
				Students: []Student{
					d.quoted(records[i]),
					d.quoted(records[j]),
				},
				SimilarityScore: float64Ptr(score),
			})
		}
	}
	return out
}

func (d *Detector) repeatedExcuses(records []leave.Record, sim *similarity.Matrix) []Anomaly {
	var out []Anomaly
	for _, g := range groupBy(len(records), func(i int) string { return d.identity(records, i) }) {
		first := records[g.members[0]]
		student := &Student{Name: first.DisplayName(), RollNumber: g.key}
		count := len(g.members)

		switch {
		case count == 2:
			a, b := g.members[0], g.members[1]
			score := sim.At(a, b)
			if score < d.cfg.RepeatedSimilarity {
				continue
			}
			out = append(out, Anomaly{
				Type:          KindRepeatedExcuse,
				RiskLevel:     RiskMedium,
				Description:   fmt.Sprintf("Student submitted %d similar leave requests", count),
				RecordIndices: []int{a, b},
				Student:       student,
				Excuses: []Excuse{
					{Date: records[a].DisplayDate(), Reason: truncate(records[a].ReasonText(), d.cfg.ExcerptLength)},
					{Date: records[b].DisplayDate(), Reason: truncate(records[b].ReasonText(), d.cfg.ExcerptLength)},
				},
				SimilarityScore: float64Ptr(score),
			})
		case count >= d.cfg.RepeatedCount:
			out = append(out, Anomaly{
				Type:          KindRepeatedExcuse,
				RiskLevel:     RiskHigh,
				Description:   fmt.Sprintf("Student submitted %d leave requests", count),
				RecordIndices: g.members,
				Student:       student,
				ExcuseCount:   count,
			})
		}
	}
	return out
}

func (d *Detector) largeGroups(records []leave.Record, sim *similarity.Matrix, clusters cluster.Assignment) []Anomaly {
	type dateCluster struct {
		date    string
		cluster int
	}
	keys := make([]dateCluster, len(records))
	for i, r := range records {
		date := r.DateText()
		if date == "" {
			date = unknownDate
		}
		keys[i] = dateCluster{date: date, cluster: clusters[i]}
	}

	var out []Anomaly
	for _, g := range groupBy(len(records), func(i int) dateCluster { return keys[i] }) {
		if len(g.members) < d.cfg.LargeGroupSize {
			continue
		}
		students := make([]Student, 0, len(g.members))
		for _, idx := range g.members {
			students = append(students, Student{
				Name:       records[idx].DisplayName(),
				RollNumber: records[idx].DisplayRoll(),
			})
		}
		out = append(out, Anomaly{
			Type:                 KindLargeGroup,
			RiskLevel:            RiskHigh,
			Description:          fmt.Sprintf("%d students submitted similar leave reasons on %s", len(g.members), g.key.date),
			RecordIndices:        g.members,
			Date:                 g.key.date,
			StudentCount:         len(g.members),
			Students:             students,
			AverageSimilarity:    float64Ptr(sim.PairMean(g.members)),
			RepresentativeReason: truncate(records[g.members[0]].ReasonText(), d.cfg.RepresentativeLength),
		})
	}
	return out
}

func (d *Detector) vagueReasons(records []leave.Record) []Anomaly {
	var out []Anomaly
	for i, r := range records {
		score := d.Vagueness(r.ReasonText())
		if !score.Flagged {
			continue
		}
		out = append(out, Anomaly{
			Type:          KindVagueReason,
			RiskLevel:     RiskLow,
			Description:   "Leave reason is vague or generic",
			RecordIndices: []int{i},
			Student: &Student{
				Name:       r.DisplayName(),
				RollNumber: r.DisplayRoll(),
				Date:       r.DisplayDate(),
			},
			Reason:            truncate(r.ReasonText(), d.cfg.RepresentativeLength),
			VagueKeywordCount: intPtr(score.KeywordCount),
			IsGeneric:         boolPtr(score.Generic),
		})
	}
	return out
}

// VagueScore is the outcome of the vagueness check for one reason.
type VagueScore struct {
	KeywordCount int
	Generic      bool
	TooShort     bool
	Flagged      bool
}

// Vagueness scores a single reason. KeywordCount is the number of distinct
// vague keywords present in the lowercased reason.
func (d *Detector) Vagueness(reason string) VagueScore {
	lower := strings.ToLower(reason)
	var s VagueScore
	for _, kw := range d.cfg.VagueKeywords {
		if strings.Contains(lower, kw) {
			s.KeywordCount++
		}
	}
	for _, phrase := range d.cfg.GenericPhrases {
		if strings.Contains(lower, phrase) {
			s.Generic = true
			break
		}
	}
	s.TooShort = utf8.RuneCountInString(lower) < d.cfg.MinReasonLength
	s.Flagged = s.KeywordCount >= d.cfg.VagueKeywordCount || s.Generic || s.TooShort
	return s
}

// identity returns the submitter key for record i.
func (d *Detector) identity(records []leave.Record, i int) string {
	id := records[i].Identity()
	if id == leave.UnknownIdentity && d.cfg.IdentityFallback == IdentityPerRecord {
		return fmt.Sprintf("anonymous-%d", i)
	}
	return id
}

func (d *Detector) quoted(r leave.Record) Student {
	return Student{
		Name:       r.DisplayName(),
		RollNumber: r.DisplayRoll(),
		Date:       r.DisplayDate(),
		Reason:     truncate(r.ReasonText(), d.cfg.ExcerptLength),
	}
}

// group is a key with its member indices in record order.
type group[K comparable] struct {
	key     K
	members []int
}

// groupBy buckets indices [0, n) by key, keeping buckets in order of first
// appearance.
func groupBy[K comparable](n int, key func(int) K) []group[K] {
	index := make(map[K]int)
	var groups []group[K]
	for i := 0; i < n; i++ {
		k := key(i)
		pos, ok := index[k]
		if !ok {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, group[K]{key: k})
		}
		groups[pos].members = append(groups[pos].members, i)
	}
	return groups
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func matrixSize(m *similarity.Matrix) int {
	if m == nil {
		return 0
	}
	return m.Size()
}

func float64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int             { return &v }
func boolPtr(v bool) *bool          { return &v }
