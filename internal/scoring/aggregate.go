package scoring

import "math"

// RiskLevel is the discrete classification of an overall score
type RiskLevel string

const (
	RiskLow     RiskLevel = "Low"
	RiskMedium  RiskLevel = "Medium"
	RiskHigh    RiskLevel = "High"
	RiskExtreme RiskLevel = "Extreme"
)

// Dimension weights
const (
	LiquidityWeight   = 0.4
	ContractWeight    = 0.4
	TransactionWeight = 0.2
)

// Aggregate computes the weighted overall score and its risk level
func Aggregate(liquidityScore, contractScore, transactionScore int) (int, RiskLevel) {
	weighted := LiquidityWeight*float64(clamp(liquidityScore, 0, 100)) +
		ContractWeight*float64(clamp(contractScore, 0, 100)) +
		TransactionWeight*float64(clamp(transactionScore, 0, 100))

	score := clamp(int(math.Round(weighted)), 0, 100)
	return score, Classify(score)
}

// Classify maps a rounded score to its band. Lower bounds are inclusive.
func Classify(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskLow
	case score >= 60:
		return RiskMedium
	case score >= 40:
		return RiskHigh
	default:
		return RiskExtreme
	}
}
