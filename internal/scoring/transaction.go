package scoring

import (
	"strings"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/models"
)

// Suspicious transaction patterns
const (
	PatternNoHistory     = "no transaction history"
	PatternLowDiversity  = "extremely low address diversity"
	PatternLowVolume     = "abnormally low transaction volume"
	minUniqueAddresses   = 10
	minTransferCount     = 20
	patternPenalty       = 10
	transactionBaseScore = 50
)

// TransactionResult is the transaction dimension of an assessment
type TransactionResult struct {
	RecentTransactions int      `json:"recent_transactions"`
	UniqueAddresses    int      `json:"unique_addresses"`
	SuspiciousPatterns []string `json:"suspicious_patterns"`
	Score              int      `json:"score"`
}

// TransferPatterns counts distinct counterparties and flags suspicious patterns.
// An empty history only reports PatternNoHistory.
func TransferPatterns(transfers []models.Transfer) (uniqueAddresses int, patterns []string) {
	if len(transfers) == 0 {
		return 0, []string{PatternNoHistory}
	}

	seen := make(map[string]struct{}, len(transfers)*2)
	for _, tx := range transfers {
		seen[strings.ToLower(tx.From)] = struct{}{}
		seen[strings.ToLower(tx.To)] = struct{}{}
	}
	uniqueAddresses = len(seen)

	patterns = []string{}
	if uniqueAddresses < minUniqueAddresses {
		patterns = append(patterns, PatternLowDiversity)
	}
	if len(transfers) < minTransferCount {
		patterns = append(patterns, PatternLowVolume)
	}
	return uniqueAddresses, patterns
}

// TransactionScore scores address diversity and subtracts 10 per suspicious pattern
func TransactionScore(uniqueAddresses int, patternCount int) int {
	score := transactionBaseScore

	switch {
	case uniqueAddresses > 100:
		score += 20
	case uniqueAddresses > 50:
		score += 15
	case uniqueAddresses > 20:
		score += 10
	case uniqueAddresses > 10:
		score += 5
	default:
		score -= 10
	}

	if patternCount > 0 {
		score -= patternCount * patternPenalty
	}

	return clamp(score, 0, 100)
}
