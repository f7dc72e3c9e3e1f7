package analysis

import (
	"strconv"

	"github.com/fyrsmithlabs/leavelens/internal/anomaly"
	"github.com/fyrsmithlabs/leavelens/internal/cluster"
	"github.com/fyrsmithlabs/leavelens/internal/leave"
	"github.com/fyrsmithlabs/leavelens/internal/similarity"
)

// Report is the result of analysing one batch.
type Report struct {
	ID                string            `json:"analysis_id"`
	GroupedCategories []Category        `json:"grouped_categories"`
	Anomalies         []anomaly.Anomaly `json:"anomalies"`
	Insights          []string          `json:"insights"`
	Statistics        Statistics        `json:"statistics"`
}

// Category is one cluster of semantically similar reasons.
type Category struct {
	CategoryID string `json:"category_id"`
	// RepresentativeReason is the reason of the first member, not a centroid.
	RepresentativeReason string            `json:"representative_reason"`
	StudentCount         int               `json:"student_count"`
	Students             []CategoryStudent `json:"students"`
	AverageSimilarity    float64           `json:"average_similarity"`
}

// CategoryStudent is a member of a category. SimilarityScores maps the
// record index of every other member to its similarity with this one.
type CategoryStudent struct {
	Name             string          `json:"name"`
	RollNumber       string          `json:"roll_number"`
	Date             string          `json:"date"`
	Reason           string          `json:"reason"`
	SimilarityScores map[int]float64 `json:"similarity_scores"`
}

// Statistics holds batch totals. Risk counts are derived from the final
// anomaly list.
type Statistics struct {
	TotalLetters        int `json:"total_letters"`
	TotalCategories     int `json:"total_categories"`
	TotalAnomalies      int `json:"total_anomalies"`
	HighRiskAnomalies   int `json:"high_risk_anomalies"`
	MediumRiskAnomalies int `json:"medium_risk_anomalies"`
	LowRiskAnomalies    int `json:"low_risk_anomalies"`
}

// groupCategories builds one Category per cluster in order of first
// appearance.
func groupCategories(records []leave.Record, clusters cluster.Assignment, sim *similarity.Matrix) []Category {
	groups := clusters.Groups()
	categories := make([]Category, 0, len(groups))
	for _, g := range groups {
		students := make([]CategoryStudent, 0, len(g.Members))
		for _, idx := range g.Members {
			scores := make(map[int]float64, len(g.Members)-1)
			for _, other := range g.Members {
				if other != idx {
					scores[other] = sim.At(idx, other)
				}
			}
			r := records[idx]
			students = append(students, CategoryStudent{
				Name:             r.DisplayName(),
				RollNumber:       r.DisplayRoll(),
				Date:             r.DisplayDate(),
				Reason:           r.ReasonText(),
				SimilarityScores: scores,
			})
		}
		categories = append(categories, Category{
			CategoryID:           strconv.Itoa(g.ID),
			RepresentativeReason: records[g.Members[0]].ReasonText(),
			StudentCount:         len(g.Members),
			Students:             students,
			AverageSimilarity:    sim.PairMean(g.Members),
		})
	}
	return categories
}

func computeStatistics(records []leave.Record, categories []Category, anomalies []anomaly.Anomaly) Statistics {
	return Statistics{
		TotalLetters:        len(records),
		TotalCategories:     len(categories),
		TotalAnomalies:      len(anomalies),
		HighRiskAnomalies:   anomaly.CountByRisk(anomalies, anomaly.RiskHigh),
		MediumRiskAnomalies: anomaly.CountByRisk(anomalies, anomaly.RiskMedium),
		LowRiskAnomalies:    anomaly.CountByRisk(anomalies, anomaly.RiskLow),
	}
}
