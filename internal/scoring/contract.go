package scoring

import (
	"math"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/advisory"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/scanner"
)

const (
	openSourceBase    = 40
	closedSourceBase  = 10
	findingPenalty    = 5
	maxFindingPenalty = 20
	advisoryWeight    = 0.6
)

// ContractResult is the contract dimension of an assessment
type ContractResult struct {
	OpenSource         bool             `json:"open_source"`
	DangerousFunctions []scanner.Label  `json:"dangerous_functions"`
	Advisory           advisory.Opinion `json:"advisory"`
	Score              int              `json:"score"`
}

// ContractScore rewards verified source, penalizes dangerous capabilities
// (capped at 20 points) and lets the advisory opinion carry 60% of its scale.
func ContractScore(openSource bool, findingCount int, advisoryScore int) int {
	score := float64(closedSourceBase)
	if openSource {
		score = openSourceBase
	}

	if findingCount < 0 {
		findingCount = 0
	}
	score -= float64(min(maxFindingPenalty, findingCount*findingPenalty))

	score += float64(clamp(advisoryScore, 0, 100)) * advisoryWeight

	return clamp(int(math.Round(score)), 0, 100)
}
