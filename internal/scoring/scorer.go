// Package scoring turns already-fetched token facts into a risk assessment.
//
// Every function here is pure: no I/O, no shared state, no errors. Missing
// upstream data must be replaced by the caller with pessimistic defaults
// before calling Analyze.
package scoring

import (
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/advisory"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/models"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/scanner"
)

// Details holds the three sub-assessments
type Details struct {
	Liquidity   LiquidityResult   `json:"liquidity"`
	Contract    ContractResult    `json:"contract"`
	Transaction TransactionResult `json:"transaction"`
}

// Assessment is the verdict for one token
type Assessment struct {
	Token           models.TokenFacts `json:"token"`
	Score           int               `json:"score"`
	RiskLevel       RiskLevel         `json:"risk_level"`
	Details         Details           `json:"details"`
	Recommendations []string          `json:"recommendations"`
}

// Analyze scores a token. advisoryRaw is the advisory service response, nil
// when the service was not reached. Contracts without verified source ignore
// advisoryRaw and use the unverified opinion, so their contract score is always
// ContractScore(false, 0, 20) = 22, whatever the advisory said.
func Analyze(
	token models.TokenFacts,
	liquidity models.LiquidityFacts,
	transactions models.TransactionFacts,
	advisoryRaw *string,
) Assessment {
	openSource := token.IsOpenSource()

	// Contract
	findings := []scanner.Label{}
	opinion := advisory.Unverified()
	if openSource {
		findings = scanner.Scan(token.RawContractSource)
		opinion = advisory.NormalizeOptional(advisoryRaw)
	}
	contract := ContractResult{
		OpenSource:         openSource,
		DangerousFunctions: findings,
		Advisory:           opinion,
		Score:              ContractScore(openSource, len(findings), opinion.Score),
	}

	// Liquidity
	topHolders := clampPercent(liquidity.TopHoldersPercent)
	liq := LiquidityResult{
		LiquidityUSD:      liquidity.LiquidityUSD,
		PriceUSD:          liquidity.PriceUSD,
		TopHoldersPercent: topHolders,
		Score:             LiquidityScore(liquidity.LiquidityUSD, topHolders),
	}

	// Transactions
	unique, patterns := TransferPatterns(transactions.Transfers)
	tx := TransactionResult{
		RecentTransactions: len(transactions.Transfers),
		UniqueAddresses:    unique,
		SuspiciousPatterns: patterns,
		Score:              TransactionScore(unique, len(patterns)),
	}

	score, level := Aggregate(liq.Score, contract.Score, tx.Score)

	assessment := Assessment{
		Token:     token,
		Score:     score,
		RiskLevel: level,
		Details: Details{
			Liquidity:   liq,
			Contract:    contract,
			Transaction: tx,
		},
	}
	assessment.Recommendations = Recommend(assessment)

	return assessment
}
