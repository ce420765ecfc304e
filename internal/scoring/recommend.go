package scoring

import (
	"fmt"
	"strings"
)

// Recommendation texts
const (
	RecUnverifiedSource   = "Contract source code is not verified, so its behavior cannot be audited. Interacting with unverified contracts carries very high risk."
	RecLowLiquidity       = "Token liquidity is low, which can cause high slippage and leaves the market open to manipulation."
	RecConcentration      = "Token supply is highly concentrated: a few addresses control most of it, so there is a risk of large sell-offs."
	RecAvoid              = "Overall risk is extreme. Avoiding this token is strongly recommended."
	RecCaution            = "Overall risk is high. If you participate, use small amounts and monitor the token closely."
	RecGeneralPrecautions = "Overall risk is moderate, but standard risk-management precautions for crypto assets still apply."

	lowLiquidityUSD      = 100_000
	highConcentrationPct = 70
	avoidBelowScore      = 40
	cautionBelowScore    = 60
)

// Recommend derives advisory lines from an assessment. Rules are evaluated in a
// fixed order, not by severity, and the result is never empty.
func Recommend(a Assessment) []string {
	recs := []string{}
	d := a.Details

	if !d.Contract.OpenSource {
		recs = append(recs, RecUnverifiedSource)
	}

	if len(d.Contract.DangerousFunctions) > 0 {
		labels := make([]string, len(d.Contract.DangerousFunctions))
		for i, l := range d.Contract.DangerousFunctions {
			labels[i] = string(l)
		}
		recs = append(recs, fmt.Sprintf(
			"Contract contains high-risk functions: %s. Review the access control of these functions carefully.",
			strings.Join(labels, ", "),
		))
	}

	if d.Liquidity.LiquidityUSD < lowLiquidityUSD {
		recs = append(recs, RecLowLiquidity)
	}

	if d.Liquidity.TopHoldersPercent > highConcentrationPct {
		recs = append(recs, RecConcentration)
	}

	if len(d.Transaction.SuspiciousPatterns) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Suspicious transaction patterns detected: %s.",
			strings.Join(d.Transaction.SuspiciousPatterns, ", "),
		))
	}

	if a.Score < avoidBelowScore {
		recs = append(recs, RecAvoid)
	} else if a.Score < cautionBelowScore {
		recs = append(recs, RecCaution)
	}

	if len(recs) == 0 {
		recs = append(recs, RecGeneralPrecautions)
	}

	return recs
}
