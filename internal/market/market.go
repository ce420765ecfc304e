// Package market fetches price, liquidity and holder distribution data
// from public market APIs.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/retry"
)

// ErrNoMarketData is returned when a provider knows nothing about the token
var ErrNoMarketData = errors.New("no market data for token")

// Quote is the market view of a token
type Quote struct {
	LiquidityUSD float64
	PriceUSD     float64
}

const (
	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond
	maxBodyBytes   = 4 << 20
)

// getJSON fetches url and decodes a JSON body into out, retrying throttling
// and server errors
func getJSON(ctx context.Context, client *http.Client, retryDelay time.Duration, url string, out any) error {
	return retry.Do(ctx, maxAttempts, retryDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Host)
		case resp.StatusCode == http.StatusNotFound:
			return retry.Permanent(ErrNoMarketData)
		case resp.StatusCode != http.StatusOK:
			return retry.Permanent(fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Host))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return retry.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	})
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
