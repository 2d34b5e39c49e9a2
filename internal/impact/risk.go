package impact

import (
	"sort"

	"github.com/zheng/modgraph/internal/graph"
)

// RiskLevel grades how far a change to a file can spread
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Icon returns the colored marker used in terminal output
func (l RiskLevel) Icon() string {
	switch l {
	case RiskCritical:
		return "🔴"
	case RiskHigh:
		return "🟠"
	case RiskMedium:
		return "🟡"
	default:
		return "🟢"
	}
}

// RiskScore represents the change risk assessment for a file
type RiskScore struct {
	ID               graph.NodeID `json:"id"`
	DirectDependents int          `json:"direct_dependents"`
	TotalDependents  int          `json:"total_dependents"`
	Level            RiskLevel    `json:"level"`
}

// CalculateRiskLevel determines risk level based on dependent metrics.
// Direct dependents are the primary factor, the transitive total the secondary one.
func CalculateRiskLevel(directDependents, totalDependents int) RiskLevel {
	if directDependents >= 50 || totalDependents >= 200 {
		return RiskCritical
	}
	if directDependents >= 20 || totalDependents >= 100 {
		return RiskHigh
	}
	if directDependents >= 5 || totalDependents >= 30 {
		return RiskMedium
	}
	return RiskLow
}

// Risk returns the risk score of one file
func (a *Analyzer) Risk(id graph.NodeID) (*RiskScore, error) {
	n, ok := a.g.Node(id)
	if !ok {
		return nil, ErrFileNotFound
	}
	direct := n.InDegree()
	total := a.reverse.Count(id)
	return &RiskScore{
		ID:               id,
		DirectDependents: direct,
		TotalDependents:  total,
		Level:            CalculateRiskLevel(direct, total),
	}, nil
}

// TopRisky returns the files with the most dependents, riskiest first.
// Ties keep discovery order; limit <= 0 returns every file.
func (a *Analyzer) TopRisky(limit int) []*RiskScore {
	scores := make([]*RiskScore, 0, a.g.Len())
	for _, id := range a.g.IDs() {
		score, _ := a.Risk(id)
		scores = append(scores, score)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].TotalDependents != scores[j].TotalDependents {
			return scores[i].TotalDependents > scores[j].TotalDependents
		}
		return scores[i].DirectDependents > scores[j].DirectDependents
	})
	if limit > 0 && limit < len(scores) {
		scores = scores[:limit]
	}
	return scores
}
