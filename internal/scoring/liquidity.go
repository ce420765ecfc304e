package scoring

import "math"

// LiquidityResult is the liquidity dimension of an assessment
type LiquidityResult struct {
	LiquidityUSD      float64 `json:"liquidity_usd"`
	PriceUSD          float64 `json:"price_usd"`
	TopHoldersPercent float64 `json:"top_holders_percent"`
	Score             int     `json:"score"`
}

// LiquidityScore combines market depth (max 50) and holder spread (max 50).
// Out-of-range input is clamped, never rejected.
func LiquidityScore(liquidityUSD, topHoldersPercent float64) int {
	return clamp(depthComponent(liquidityUSD)+concentrationComponent(topHoldersPercent), 0, 100)
}

func depthComponent(liquidityUSD float64) int {
	if math.IsNaN(liquidityUSD) || liquidityUSD < 0 {
		liquidityUSD = 0
	}

	switch {
	case liquidityUSD >= 10_000_000:
		return 50
	case liquidityUSD >= 1_000_000:
		return 40
	case liquidityUSD >= 500_000:
		return 30
	case liquidityUSD >= 100_000:
		return 20
	case liquidityUSD >= 10_000:
		return 10
	default:
		return 5
	}
}

func concentrationComponent(topHoldersPercent float64) int {
	pct := clampPercent(topHoldersPercent)
	return clamp(int(math.Round(50*(1-pct/100))), 0, 50)
}

// clampPercent maps any input into [0,100]; NaN is treated as fully concentrated.
func clampPercent(pct float64) float64 {
	if math.IsNaN(pct) {
		return 100
	}
	return math.Max(0, math.Min(100, pct))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
