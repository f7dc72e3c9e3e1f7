// Package insight turns an analysed batch into short human-readable
// statements.
package insight

import (
	"fmt"

	"github.com/fyrsmithlabs/leavelens/internal/anomaly"
	"github.com/fyrsmithlabs/leavelens/internal/cluster"
	"github.com/fyrsmithlabs/leavelens/internal/leave"
)

// PeakDateMinimum is the smallest per-date count reported as a peak.
const PeakDateMinimum = 3

// Summarize returns the insight lines for a batch. Output depends only on
// input order; ties go to the key seen first.
func Summarize(records []leave.Record, clusters cluster.Assignment, anomalies []anomaly.Anomaly) []string {
	total := len(records)
	insights := []string{
		fmt.Sprintf("Analyzed %d leave letters and identified %d distinct reason categories.", total, clusters.Distinct()),
	}

	if n := anomaly.CountByRisk(anomalies, anomaly.RiskHigh); n > 0 {
		insights = append(insights, fmt.Sprintf("⚠️ %d high-risk anomalies detected requiring immediate review.", n))
	}
	if n := anomaly.CountByRisk(anomalies, anomaly.RiskMedium); n > 0 {
		insights = append(insights, fmt.Sprintf("⚠️ %d medium-risk cases flagged for verification.", n))
	}
	if n := anomaly.CountByRisk(anomalies, anomaly.RiskLow); n > 0 {
		insights = append(insights, fmt.Sprintf("ℹ️ %d low-risk cases (vague reasons) identified.", n))
	}

	if total > 0 && len(clusters) > 0 {
		top := mostCommon(len(clusters), func(i int) (int, bool) { return clusters[i], true })
		pct := float64(top.count) / float64(total) * 100
		insights = append(insights, fmt.Sprintf("Most common leave category: %d students (%.1f%%).", top.count, pct))
	}

	peak := mostCommon(len(records), func(i int) (string, bool) {
		d := records[i].DateText()
		return d, d != ""
	})
	if peak.count >= PeakDateMinimum {
		insights = append(insights, fmt.Sprintf("Peak leave date: %s with %d requests.", peak.key, peak.count))
	}

	return insights
}

type tally[K comparable] struct {
	key   K
	count int
}

// mostCommon counts keys over [0, n) and returns the largest tally. Keys
// are kept in first-seen order so the earliest key wins a tie.
func mostCommon[K comparable](n int, key func(int) (K, bool)) tally[K] {
	index := make(map[K]int)
	var tallies []tally[K]
	for i := 0; i < n; i++ {
		k, ok := key(i)
		if !ok {
			continue
		}
		pos, seen := index[k]
		if !seen {
			pos = len(tallies)
			index[k] = pos
			tallies = append(tallies, tally[K]{key: k})
		}
		tallies[pos].count++
	}

	var best tally[K]
	for _, t := range tallies {
		if t.count > best.count {
			best = t
		}
	}
	return best
}
