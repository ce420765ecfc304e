package market

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/chain"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/models"
)

// HoneyPotClient reads the top holder distribution from honeypot.is
type HoneyPotClient struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
}

type TopTokenHoldersResponse struct {
	TotalSupply string                  `json:"totalSupply"`
	Holders     []models.HoneyPotHolder `json:"holders"`
}

func NewHoneyPotClient(baseURL string, timeout time.Duration) *HoneyPotClient {
	if baseURL == "" {
		baseURL = "https://api.honeypot.is"
	}
	return &HoneyPotClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		retryDelay: retryBaseDelay,
	}
}

// TopHoldersPercent returns the share of total supply held by the listed top holders
func (c *HoneyPotClient) TopHoldersPercent(ctx context.Context, network chain.Network, address string) (float64, error) {
	url := fmt.Sprintf("%s/v1/TopHolders?address=%s&chainID=%d", c.baseURL, address, network.ChainID)

	var result TopTokenHoldersResponse
	if err := getJSON(ctx, c.httpClient, c.retryDelay, url, &result); err != nil {
		return 0, fmt.Errorf("honeypot %s: %w", address, err)
	}

	if len(result.Holders) == 0 {
		return 0, fmt.Errorf("honeypot %s: %w", address, ErrNoMarketData)
	}

	totalSupply, err := strconv.ParseFloat(result.TotalSupply, 64)
	if err != nil || totalSupply <= 0 {
		return 0, fmt.Errorf("honeypot %s: invalid total supply %q", address, result.TotalSupply)
	}

	var topBalance float64
	for _, holder := range result.Holders {
		balance, err := strconv.ParseFloat(holder.Balance, 64)
		if err != nil {
			continue
		}
		topBalance += balance
	}

	return topBalance / totalSupply * 100, nil
}
