package anomaly

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/leavelens/internal/cluster"
	"github.com/fyrsmithlabs/leavelens/internal/leave"
	"github.com/fyrsmithlabs/leavelens/internal/similarity"
)

const longReason = "I was admitted to the city hospital with a high fever for two days"

func rec(name, roll, date, reason string) leave.Record {
	r := leave.Record{Reason: leave.String(reason)}
	if name != "" {
		r.StudentName = leave.String(name)
	}
	if roll != "" {
		r.RollNumber = leave.String(roll)
	}
	if date != "" {
		r.Date = leave.String(date)
	}
	return r
}

func distinctClusters(n int) cluster.Assignment {
	a := make(cluster.Assignment, n)
	for i := range a {
		a[i] = i
	}
	return a
}

func ofKind(anomalies []Anomaly, k Kind) []Anomaly {
	var out []Anomaly
	for _, a := range anomalies {
		if a.Type == k {
			out = append(out, a)
		}
	}
	return out
}

func TestDetect_ShapeMismatch(t *testing.T) {
	d := New(Config{})
	records := []leave.Record{rec("A", "1", "", longReason), rec("B", "2", "", longReason)}

	_, err := d.Detect(records, similarity.NewMatrix(3), distinctClusters(2))
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, err = d.Detect(records, similarity.NewMatrix(2), distinctClusters(1))
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, err = d.Detect(records, nil, distinctClusters(2))
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestDetect_HighSimilarityThreshold(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  bool
	}{
		{"at threshold", 0.85, true},
		{"just below", 0.8499, false},
		{"above", 0.97, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []leave.Record{
				rec("Asha", "11", "2024-01-10", longReason),
				rec("Ben", "12", "2024-01-11", longReason+" again"),
			}
			sim := similarity.NewMatrix(2)
			sim.Set(0, 1, tt.score)

			got, err := New(Config{}).Detect(records, sim, distinctClusters(2))
			require.NoError(t, err)

			high := ofKind(got, KindHighSimilarity)
			if !tt.want {
				assert.Empty(t, high)
				return
			}
			require.Len(t, high, 1)
			a := high[0]
			assert.Equal(t, RiskHigh, a.RiskLevel)
			assert.Equal(t, []int{0, 1}, a.RecordIndices)
			require.Len(t, a.Students, 2)
			assert.Equal(t, "Asha", a.Students[0].Name)
			assert.Equal(t, "12", a.Students[1].RollNumber)
			require.NotNil(t, a.SimilarityScore)
			assert.Equal(t, tt.score, *a.SimilarityScore)
			assert.Contains(t, a.Description, "similarity:")
		})
	}
}

func TestDetect_HighSimilarityPairOrder(t *testing.T) {
	records := []leave.Record{
		rec("A", "1", "", longReason),
		rec("B", "2", "", longReason),
		rec("C", "3", "", longReason),
	}
	sim := similarity.NewMatrix(3)
	sim.Set(1, 2, 0.9)
	sim.Set(0, 2, 0.9)
	sim.Set(0, 1, 0.9)

	got, err := New(Config{}).Detect(records, sim, distinctClusters(3))
	require.NoError(t, err)

	high := ofKind(got, KindHighSimilarity)
	require.Len(t, high, 3)
	assert.Equal(t, []int{0, 1}, high[0].RecordIndices)
	assert.Equal(t, []int{0, 2}, high[1].RecordIndices)
	assert.Equal(t, []int{1, 2}, high[2].RecordIndices)
}

func TestDetect_RepeatedExcuse(t *testing.T) {
	t.Run("two submissions at threshold are medium", func(t *testing.T) {
		records := []leave.Record{
			rec("Asha", "11", "2024-01-10", longReason),
			rec("Asha", "11", "2024-02-10", longReason+" later"),
		}
		sim := similarity.NewMatrix(2)
		sim.Set(0, 1, 0.75)

		got, err := New(Config{}).Detect(records, sim, distinctClusters(2))
		require.NoError(t, err)

		rep := ofKind(got, KindRepeatedExcuse)
		require.Len(t, rep, 1)
		a := rep[0]
		assert.Equal(t, RiskMedium, a.RiskLevel)
		assert.Equal(t, "Student submitted 2 similar leave requests", a.Description)
		require.NotNil(t, a.Student)
		assert.Equal(t, "Asha", a.Student.Name)
		assert.Equal(t, "11", a.Student.RollNumber)
		require.Len(t, a.Excuses, 2)
		assert.Equal(t, "2024-02-10", a.Excuses[1].Date)
		require.NotNil(t, a.SimilarityScore)
		assert.Equal(t, 0.75, *a.SimilarityScore)
	})

	t.Run("two submissions below threshold are ignored", func(t *testing.T) {
		records := []leave.Record{
			rec("Asha", "11", "2024-01-10", longReason),
			rec("Asha", "11", "2024-02-10", longReason),
		}
		sim := similarity.NewMatrix(2)
		sim.Set(0, 1, 0.74)

		got, err := New(Config{}).Detect(records, sim, distinctClusters(2))
		require.NoError(t, err)
		assert.Empty(t, ofKind(got, KindRepeatedExcuse))
	})

	t.Run("three submissions are high regardless of similarity", func(t *testing.T) {
		records := []leave.Record{
			rec("Asha", "11", "2024-01-10", longReason),
			rec("Ben", "12", "2024-01-10", longReason),
			rec("Asha", "11", "2024-02-10", longReason),
			rec("Asha", "11", "2024-03-10", longReason),
		}
		got, err := New(Config{}).Detect(records, similarity.NewMatrix(4), distinctClusters(4))
		require.NoError(t, err)

		rep := ofKind(got, KindRepeatedExcuse)
		require.Len(t, rep, 1)
		a := rep[0]
		assert.Equal(t, RiskHigh, a.RiskLevel)
		assert.Equal(t, 3, a.ExcuseCount)
		assert.Equal(t, []int{0, 2, 3}, a.RecordIndices)
		assert.Equal(t, "Student submitted 3 leave requests", a.Description)
		assert.Nil(t, a.SimilarityScore)
	})

	t.Run("identity falls back to name", func(t *testing.T) {
		records := []leave.Record{
			rec("Asha", "", "", longReason),
			rec("Asha", "  ", "", longReason),
		}
		sim := similarity.NewMatrix(2)
		sim.Set(0, 1, 0.9)

		got, err := New(Config{}).Detect(records, sim, distinctClusters(2))
		require.NoError(t, err)

		rep := ofKind(got, KindRepeatedExcuse)
		require.Len(t, rep, 1)
		assert.Equal(t, "Asha", rep[0].Student.RollNumber)
	})
}

func TestDetect_AnonymousIdentity(t *testing.T) {
	records := []leave.Record{
		rec("", "", "", longReason),
		rec("", "", "", longReason),
		rec("", "", "", longReason),
	}
	sim := similarity.NewMatrix(3)

	shared, err := New(DefaultConfig()).Detect(records, sim, distinctClusters(3))
	require.NoError(t, err)
	rep := ofKind(shared, KindRepeatedExcuse)
	require.Len(t, rep, 1)
	assert.Equal(t, RiskHigh, rep[0].RiskLevel)
	assert.Equal(t, 3, rep[0].ExcuseCount)
	assert.Equal(t, leave.UnknownIdentity, rep[0].Student.RollNumber)
	assert.Equal(t, leave.UnknownName, rep[0].Student.Name)

	perRecord, err := New(Config{IdentityFallback: IdentityPerRecord}).Detect(records, sim, distinctClusters(3))
	require.NoError(t, err)
	assert.Empty(t, ofKind(perRecord, KindRepeatedExcuse))
}

func TestDetect_LargeGroup(t *testing.T) {
	build := func(n int) []leave.Record {
		records := make([]leave.Record, n)
		for i := range records {
			records[i] = rec("S", string(rune('a'+i)), "2024-03-01", longReason)
		}
		return records
	}

	t.Run("five in one date and cluster", func(t *testing.T) {
		records := build(5)
		sim := similarity.NewMatrix(5)
		for i := 0; i < 5; i++ {
			for j := i + 1; j < 5; j++ {
				sim.Set(i, j, 0.5)
			}
		}
		got, err := New(Config{}).Detect(records, sim, make(cluster.Assignment, 5))
		require.NoError(t, err)

		groups := ofKind(got, KindLargeGroup)
		require.Len(t, groups, 1)
		a := groups[0]
		assert.Equal(t, RiskHigh, a.RiskLevel)
		assert.Equal(t, 5, a.StudentCount)
		assert.Equal(t, "2024-03-01", a.Date)
		assert.Equal(t, "5 students submitted similar leave reasons on 2024-03-01", a.Description)
		assert.Len(t, a.Students, 5)
		require.NotNil(t, a.AverageSimilarity)
		assert.InDelta(t, 0.5, *a.AverageSimilarity, 1e-12)
		assert.Equal(t, longReason, a.RepresentativeReason)
	})

	t.Run("four is not enough", func(t *testing.T) {
		got, err := New(Config{}).Detect(build(4), similarity.NewMatrix(4), make(cluster.Assignment, 4))
		require.NoError(t, err)
		assert.Empty(t, ofKind(got, KindLargeGroup))
	})

	t.Run("different clusters split the group", func(t *testing.T) {
		got, err := New(Config{}).Detect(build(6), similarity.NewMatrix(6), cluster.Assignment{0, 0, 0, 1, 1, 1})
		require.NoError(t, err)
		assert.Empty(t, ofKind(got, KindLargeGroup))
	})

	t.Run("missing dates share the unknown key", func(t *testing.T) {
		records := build(5)
		for i := range records {
			records[i].Date = nil
		}
		got, err := New(Config{}).Detect(records, similarity.NewMatrix(5), make(cluster.Assignment, 5))
		require.NoError(t, err)
		groups := ofKind(got, KindLargeGroup)
		require.Len(t, groups, 1)
		assert.Equal(t, "unknown", groups[0].Date)
	})
}

func TestDetect_VagueReason(t *testing.T) {
	tests := []struct {
		name      string
		reason    string
		flagged   bool
		keywords  int
		isGeneric bool
	}{
		{"length 29 is flagged", strings.Repeat("x", 29), true, 0, false},
		{"length 30 is not flagged", strings.Repeat("x", 30), false, 0, false},
		{"generic phrase", "I could not attend class due to personal reasons yesterday", true, 1, true},
		{"two keywords", "An important and necessary family event took place at home", true, 2, false},
		{"one keyword", "An important family wedding in another city this weekend", false, 1, false},
		{"keyword counted once", "urgent urgent urgent urgent and my cousin's wedding ceremony", false, 1, false},
		{"empty reason", "", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []leave.Record{rec("Asha", "11", "2024-01-10", tt.reason)}
			got, err := New(Config{}).Detect(records, similarity.NewMatrix(1), distinctClusters(1))
			require.NoError(t, err)

			vague := ofKind(got, KindVagueReason)
			if !tt.flagged {
				assert.Empty(t, vague)
				return
			}
			require.Len(t, vague, 1)
			a := vague[0]
			assert.Equal(t, RiskLow, a.RiskLevel)
			assert.Equal(t, "Leave reason is vague or generic", a.Description)
			assert.Equal(t, []int{0}, a.RecordIndices)
			require.NotNil(t, a.VagueKeywordCount)
			assert.Equal(t, tt.keywords, *a.VagueKeywordCount)
			require.NotNil(t, a.IsGeneric)
			assert.Equal(t, tt.isGeneric, *a.IsGeneric)
			assert.Equal(t, "2024-01-10", a.Student.Date)
		})
	}
}

func TestDetect_LengthCountsRunes(t *testing.T) {
	d := New(Config{})
	reason := strings.Repeat("é", 30)
	assert.False(t, d.Vagueness(reason).TooShort)
	assert.True(t, d.Vagueness(strings.Repeat("é", 29)).TooShort)
}

func TestDetect_RuleOrder(t *testing.T) {
	records := []leave.Record{
		rec("Asha", "11", "2024-01-10", "urgent"),
		rec("Asha", "11", "2024-01-10", "urgent"),
	}
	sim := similarity.NewMatrix(2)
	sim.Set(0, 1, 1)

	got, err := New(Config{}).Detect(records, sim, make(cluster.Assignment, 2))
	require.NoError(t, err)

	kinds := make([]Kind, 0, len(got))
	for _, a := range got {
		kinds = append(kinds, a.Type)
	}
	assert.Equal(t, []Kind{
		KindHighSimilarity,
		KindRepeatedExcuse,
		KindVagueReason,
		KindVagueReason,
	}, kinds)
}

func TestDetect_Truncation(t *testing.T) {
	reason := strings.Repeat("abcdefghij", 20)
	records := []leave.Record{
		rec("A", "1", "", reason),
		rec("B", "2", "", reason),
	}
	sim := similarity.NewMatrix(2)
	sim.Set(0, 1, 1)

	got, err := New(Config{}).Detect(records, sim, distinctClusters(2))
	require.NoError(t, err)
	high := ofKind(got, KindHighSimilarity)
	require.Len(t, high, 1)
	assert.Len(t, high[0].Students[0].Reason, 100)
}

func TestCountByRisk(t *testing.T) {
	anomalies := []Anomaly{
		{RiskLevel: RiskHigh}, {RiskLevel: RiskLow}, {RiskLevel: RiskHigh},
	}
	assert.Equal(t, 2, CountByRisk(anomalies, RiskHigh))
	assert.Equal(t, 0, CountByRisk(anomalies, RiskMedium))
	assert.Equal(t, 1, CountByRisk(anomalies, RiskLow))
}
