package market

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/chain"
)

// volumeLiquidityRatio estimates pool liquidity from 24h traded volume
const volumeLiquidityRatio = 0.1

type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
}

type coinGeckoPrice struct {
	USD          float64 `json:"usd"`
	USDMarketCap float64 `json:"usd_market_cap"`
	USD24hVol    float64 `json:"usd_24h_vol"`
}

func NewCoinGeckoClient(baseURL string, timeout time.Duration) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		retryDelay: retryBaseDelay,
	}
}

// Quote reads the token price and estimates liquidity as 10% of 24h volume
func (c *CoinGeckoClient) Quote(ctx context.Context, network chain.Network, address string) (Quote, error) {
	endpoint := fmt.Sprintf("%s/simple/token_price/%s?%s", c.baseURL, network.CoinGeckoPlatform, url.Values{
		"contract_addresses": {address},
		"vs_currencies":      {"usd"},
		"include_market_cap": {"true"},
		"include_24hr_vol":   {"true"},
	}.Encode())

	var prices map[string]coinGeckoPrice
	if err := getJSON(ctx, c.httpClient, c.retryDelay, endpoint, &prices); err != nil {
		return Quote{}, fmt.Errorf("coingecko %s: %w", address, err)
	}

	p, ok := prices[strings.ToLower(address)]
	if !ok {
		return Quote{}, fmt.Errorf("coingecko %s: %w", address, ErrNoMarketData)
	}

	return Quote{
		LiquidityUSD: p.USD24hVol * volumeLiquidityRatio,
		PriceUSD:     p.USD,
	}, nil
}
