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

type DexScreenerClient struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
}

type DexScreenerResponse struct {
	Pairs []models.DexScreenerPair `json:"pairs"`
}

func NewDexScreenerClient(baseURL string, timeout time.Duration) *DexScreenerClient {
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com/latest/dex/tokens"
	}
	return &DexScreenerClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		retryDelay: retryBaseDelay,
	}
}

// Quote sums pool liquidity across the token's pairs on the given network.
// Price comes from the first pair that reports one.
func (d *DexScreenerClient) Quote(ctx context.Context, network chain.Network, address string) (Quote, error) {
	var result DexScreenerResponse
	if err := getJSON(ctx, d.httpClient, d.retryDelay, d.baseURL+"/"+address, &result); err != nil {
		return Quote{}, fmt.Errorf("dexscreener %s: %w", address, err)
	}

	var q Quote
	matched := 0
	for _, pair := range result.Pairs {
		if pair.ChainID != "" && pair.ChainID != network.DexScreenerChain {
			continue
		}
		matched++
		q.LiquidityUSD += pair.Liquidity.USD
		if q.PriceUSD == 0 {
			if price, err := strconv.ParseFloat(pair.PriceUSD, 64); err == nil {
				q.PriceUSD = price
			}
		}
	}

	if matched == 0 {
		return Quote{}, fmt.Errorf("dexscreener %s: %w", address, ErrNoMarketData)
	}
	return q, nil
}
