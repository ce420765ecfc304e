package contract

import (
	"context"
	"math"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/models"
)

// Holder concentration estimates, in percent of supply held by top holders
const (
	EmptyHolderListPercent   = 90
	HolderFetchFailedPercent = 80
	minEstimatePercent       = 10
	maxEstimatePercent       = 95
)

// EstimateTopHoldersPercent approximates concentration from the length of the
// holder list alone: more listed holders reads as a wider spread.
func EstimateTopHoldersPercent(holders []models.Holder) float64 {
	if len(holders) == 0 {
		return EmptyHolderListPercent
	}
	return math.Min(maxEstimatePercent, math.Max(minEstimatePercent, float64(100-2*len(holders))))
}

// TopHoldersPercent fetches the holder list and estimates its concentration
func (c *EtherscanClient) TopHoldersPercent(ctx context.Context, chainID int64, address string, pageSize int) (float64, error) {
	holders, err := c.TokenHolders(ctx, chainID, address, pageSize)
	if err != nil {
		return 0, err
	}
	return EstimateTopHoldersPercent(holders), nil
}
