package analysis

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fyrsmithlabs/leavelens/internal/anomaly"
	"github.com/fyrsmithlabs/leavelens/internal/leave"
	"github.com/fyrsmithlabs/leavelens/internal/logging"
	"github.com/fyrsmithlabs/leavelens/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const bagDimension = 256

// bagOfWords embeds text as a normalised word-count vector so tests get
// stable, meaningful similarities without a model.
type bagOfWords struct {
	calls atomic.Int32
	err   error
	// drop removes vectors from the output to simulate a broken provider.
	drop int
}

func (b *bagOfWords) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	b.calls.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v := make([]float32, bagDimension)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			v[h.Sum32()%bagDimension]++
		}
		var norm float64
		for _, x := range v {
			norm += float64(x * x)
		}
		if norm > 0 {
			inv := float32(1 / math.Sqrt(norm))
			for i := range v {
				v[i] *= inv
			}
		}
		out = append(out, v)
	}
	return out[:len(out)-b.drop], nil
}

func record(name, roll, date, reason string) leave.Record {
	return leave.Record{
		StudentName: leave.String(name),
		RollNumber:  leave.String(roll),
		Date:        leave.String(date),
		Reason:      leave.String(reason),
	}
}

// coordinatedBatch is five identical boilerplate excuses on one date plus
// one unrelated, specific request.
func coordinatedBatch() []leave.Record {
	const excuse = "Unable to attend due to unavoidable circumstances"
	return []leave.Record{
		record("Asha Menon", "21CS001", "12-01-2024", excuse),
		record("Rahul Verma", "21CS002", "12-01-2024", excuse),
		record("Sneha Iyer", "21CS003", "12-01-2024", excuse),
		record("Karthik Rao", "21CS004", "12-01-2024", excuse),
		record("Divya Nair", "21CS005", "12-01-2024", excuse),
		record("Vikram Singh", "21CS099", "15-01-2024", "Attending my sister's wedding in Chennai with the whole family"),
	}
}

func newAnalyzer(t *testing.T, emb Embedder, opts ...Option) *Analyzer {
	t.Helper()
	opts = append([]Option{WithIDGenerator(func() string { return "test-analysis" })}, opts...)
	a, err := New(emb, opts...)
	require.NoError(t, err)
	return a
}

func countKind(anomalies []anomaly.Anomaly, kind anomaly.Kind) int {
	n := 0
	for _, a := range anomalies {
		if a.Type == kind {
			n++
		}
	}
	return n
}

func TestNew_RequiresEmbedder(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyze_CoordinatedExcuses(t *testing.T) {
	a := newAnalyzer(t, &bagOfWords{})

	report, err := a.Analyze(context.Background(), coordinatedBatch())
	require.NoError(t, err)

	assert.Equal(t, "test-analysis", report.ID)
	require.Len(t, report.GroupedCategories, 2)

	group := report.GroupedCategories[0]
	assert.Equal(t, 5, group.StudentCount)
	assert.Equal(t, "Unable to attend due to unavoidable circumstances", group.RepresentativeReason)
	assert.InDelta(t, 1.0, group.AverageSimilarity, 1e-6)

	loner := report.GroupedCategories[1]
	require.Equal(t, 1, loner.StudentCount)
	assert.Equal(t, "Vikram Singh", loner.Students[0].Name)
	assert.Empty(t, loner.Students[0].SimilarityScores)

	assert.Equal(t, 10, countKind(report.Anomalies, anomaly.KindHighSimilarity))
	assert.Equal(t, 1, countKind(report.Anomalies, anomaly.KindLargeGroup))
	assert.Equal(t, 5, countKind(report.Anomalies, anomaly.KindVagueReason))
	assert.Equal(t, 0, countKind(report.Anomalies, anomaly.KindRepeatedExcuse))

	for _, an := range report.Anomalies {
		assert.NotContains(t, an.RecordIndices, 5, "unrelated request must not be flagged")
	}

	var large anomaly.Anomaly
	for _, an := range report.Anomalies {
		if an.Type == anomaly.KindLargeGroup {
			large = an
		}
	}
	assert.Equal(t, "12-01-2024", large.Date)
	assert.Equal(t, 5, large.StudentCount)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, large.RecordIndices)

	assert.Equal(t, Statistics{
		TotalLetters:        6,
		TotalCategories:     2,
		TotalAnomalies:      16,
		HighRiskAnomalies:   11,
		MediumRiskAnomalies: 0,
		LowRiskAnomalies:    5,
	}, report.Statistics)

	assert.Equal(t, []string{
		"Analyzed 6 leave letters and identified 2 distinct reason categories.",
		"⚠️ 11 high-risk anomalies detected requiring immediate review.",
		"ℹ️ 5 low-risk cases (vague reasons) identified.",
		"Most common leave category: 5 students (83.3%).",
		"Peak leave date: 12-01-2024 with 5 requests.",
	}, report.Insights)
}

func TestAnalyze_SimilarityScoresWithinCategory(t *testing.T) {
	a := newAnalyzer(t, &bagOfWords{})

	report, err := a.Analyze(context.Background(), coordinatedBatch())
	require.NoError(t, err)

	group := report.GroupedCategories[0]
	for i, s := range group.Students {
		assert.Len(t, s.SimilarityScores, 4, "student %d", i)
		assert.NotContains(t, s.SimilarityScores, i)
		assert.NotContains(t, s.SimilarityScores, 5)
	}
}

func TestAnalyze_SingleRecord(t *testing.T) {
	a := newAnalyzer(t, &bagOfWords{})

	report, err := a.Analyze(context.Background(), []leave.Record{
		record("Asha Menon", "21CS001", "12-01-2024", "Medical appointment for a follow-up knee surgery review"),
	})
	require.NoError(t, err)

	require.Len(t, report.GroupedCategories, 1)
	assert.Equal(t, 1, report.GroupedCategories[0].StudentCount)
	assert.Empty(t, report.Anomalies)
	assert.NotNil(t, report.Anomalies)
	assert.Equal(t, 1, report.Statistics.TotalCategories)
}

func TestAnalyze_MissingFieldsUseDefaults(t *testing.T) {
	a := newAnalyzer(t, &bagOfWords{})

	report, err := a.Analyze(context.Background(), []leave.Record{
		{Reason: leave.String("Fever")},
		{Reason: leave.String("Attending my cousin's engagement ceremony out of town")},
	})
	require.NoError(t, err)

	for _, c := range report.GroupedCategories {
		for _, s := range c.Students {
			assert.Equal(t, leave.UnknownName, s.Name)
			assert.Equal(t, leave.NotApplicable, s.RollNumber)
			assert.Equal(t, leave.NotApplicable, s.Date)
		}
	}
	// "Fever" is too short.
	assert.Equal(t, 1, countKind(report.Anomalies, anomaly.KindVagueReason))
}

func TestAnalyze_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		records []leave.Record
	}{
		{"empty batch", nil},
		{"all reasons empty", []leave.Record{
			record("A", "1", "12-01-2024", ""),
			record("B", "2", "12-01-2024", "   "),
		}},
		{"missing reason key", []leave.Record{
			record("A", "1", "12-01-2024", "Sick with fever and cold for two days"),
			{StudentName: leave.String("B")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := &bagOfWords{}
			a := newAnalyzer(t, emb)

			report, err := a.Analyze(context.Background(), tt.records)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Nil(t, report)
			assert.Zero(t, emb.calls.Load(), "no embedding work before validation")
		})
	}
}

func TestAnalyze_EmptyReasonAlongsideValid(t *testing.T) {
	a := newAnalyzer(t, &bagOfWords{})

	report, err := a.Analyze(context.Background(), []leave.Record{
		record("A", "1", "12-01-2024", ""),
		record("B", "2", "12-01-2024", "Sick with fever and cold for two days"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Statistics.TotalLetters)
}

func TestAnalyze_EmbedderFailure(t *testing.T) {
	a := newAnalyzer(t, &bagOfWords{err: errors.New("connection refused")})

	_, err := a.Analyze(context.Background(), coordinatedBatch())
	assert.ErrorIs(t, err, ErrCollaborator)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAnalyze_EmbedderContractViolation(t *testing.T) {
	a := newAnalyzer(t, &bagOfWords{drop: 1})

	_, err := a.Analyze(context.Background(), coordinatedBatch())
	assert.ErrorIs(t, err, ErrInternal)
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := newAnalyzer(t, &bagOfWords{})
	batch := append(coordinatedBatch(),
		record("Asha Menon", "21CS001", "19-01-2024", "Sick with high fever, doctor advised rest"),
		record("Asha Menon", "21CS001", "26-01-2024", "Sick with high fever, doctor advised bed rest"),
	)

	first, err := a.Analyze(context.Background(), batch)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyze_CategoriesCoverEveryRecord(t *testing.T) {
	a := newAnalyzer(t, &bagOfWords{})
	batch := append(coordinatedBatch(),
		record("Meera Pillai", "21CS010", "16-01-2024", "Travelling home for a family emergency"),
		record("Arjun Das", "21CS011", "16-01-2024", "Representing the college at the state chess tournament"),
		record("Neha Gupta", "21CS012", "17-01-2024", "Dental surgery scheduled in the morning"),
	)

	report, err := a.Analyze(context.Background(), batch)
	require.NoError(t, err)

	total := 0
	for _, c := range report.GroupedCategories {
		total += c.StudentCount
		assert.Len(t, c.Students, c.StudentCount)
	}
	assert.Equal(t, len(batch), total)
	assert.Equal(t, len(report.GroupedCategories), report.Statistics.TotalCategories)
}

func TestAnalyze_Telemetry(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	a := newAnalyzer(t, &bagOfWords{},
		WithTracerProvider(tt.TracerProvider()),
		WithMeterProvider(tt.MeterProvider()),
	)

	report, err := a.Analyze(context.Background(), coordinatedBatch())
	require.NoError(t, err)
	require.NotEmpty(t, report.GroupedCategories)
	require.NotEmpty(t, report.Insights)

	for _, name := range []string{
		"analysis.Analyze", "analysis.embed", "analysis.cluster",
		"analysis.similarity", "analysis.detect", "analysis.summarize",
	} {
		tt.AssertSpanExists(t, name)
	}
	tt.AssertSpanAttribute(t, "analysis.Analyze", "analysis.id", "test-analysis")
	tt.AssertSpanAttribute(t, "analysis.Analyze", "analysis.records", int64(6))
	tt.AssertSpanAttribute(t, "analysis.Analyze", "analysis.categories", int64(report.Statistics.TotalCategories))
	tt.AssertSpanAttribute(t, "analysis.Analyze", "analysis.anomalies", int64(report.Statistics.TotalAnomalies))

	names, err := tt.MetricNames(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, "leavelens.analysis.duration_seconds")
	assert.Contains(t, names, "leavelens.analysis.anomalies_total")
}

func TestAnalyze_FailureLogged(t *testing.T) {
	tl := logging.NewTestLogger()
	a := newAnalyzer(t, &bagOfWords{}, WithLogger(tl.Logger))

	_, err := a.Analyze(context.Background(), nil)
	require.Error(t, err)

	tl.AssertLogged(t, zapcore.WarnLevel, "analysis failed")
	tl.AssertField(t, "analysis failed", "error_class", "invalid_input")
}

func TestAnalyze_LogsNoPersonalData(t *testing.T) {
	tl := logging.NewTestLogger()
	a := newAnalyzer(t, &bagOfWords{}, WithLogger(tl.Logger))

	_, err := a.Analyze(context.Background(), coordinatedBatch())
	require.NoError(t, err)

	tl.AssertLogged(t, zapcore.InfoLevel, "analysis completed")
	tl.AssertNoPII(t, "Asha Menon", "21CS001", "unavoidable circumstances")
}
