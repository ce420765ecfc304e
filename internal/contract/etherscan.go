// Package contract implements an Etherscan v2 client for verified source code,
// token transfers and holder lists on any supported chain.
package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/models"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/retry"
)

// ErrAPI is returned when the explorer answers with status "0"
var ErrAPI = errors.New("explorer API error")

const (
	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond
	maxBodyBytes   = 8 << 20

	noTransactionsMessage = "No transactions found"
)

type EtherscanClient struct {
	apikey     string
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
}

// apiResponse is the common envelope. Result is an array on success and a
// string on most errors.
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type sourceCodeResult struct {
	SourceCode   string `json:"SourceCode"`
	ABI          string `json:"ABI"`
	ContractName string `json:"ContractName"`
	Proxy        string `json:"Proxy"`
}

type tokenTransferResult struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
}

func NewEtherscanClient(apiKey, baseURL string, timeout time.Duration) *EtherscanClient {
	if baseURL == "" {
		baseURL = "https://api.etherscan.io/v2/api"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EtherscanClient{
		apikey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: retryBaseDelay,
	}
}

// SourceCode returns the verified source of a contract, or "" when the
// contract is not verified
func (c *EtherscanClient) SourceCode(ctx context.Context, chainID int64, address string) (string, error) {
	params := url.Values{
		"module":  {"contract"},
		"action":  {"getsourcecode"},
		"address": {address},
	}

	var results []sourceCodeResult
	if err := c.get(ctx, chainID, params, &results); err != nil {
		return "", fmt.Errorf("getsourcecode %s: %w", address, err)
	}
	if len(results) == 0 {
		return "", nil
	}
	return results[0].SourceCode, nil
}

// TokenTransfers returns up to pageSize of the most recent transfers of the token
func (c *EtherscanClient) TokenTransfers(ctx context.Context, chainID int64, address string, pageSize int) ([]models.Transfer, error) {
	params := url.Values{
		"module":          {"account"},
		"action":          {"tokentx"},
		"contractaddress": {address},
		"page":            {"1"},
		"offset":          {strconv.Itoa(pageSize)},
		"sort":            {"desc"},
	}

	var results []tokenTransferResult
	if err := c.get(ctx, chainID, params, &results); err != nil {
		return nil, fmt.Errorf("tokentx %s: %w", address, err)
	}

	transfers := make([]models.Transfer, 0, len(results))
	for _, r := range results {
		block, _ := strconv.ParseUint(r.BlockNumber, 10, 64)
		var ts time.Time
		if secs, err := strconv.ParseInt(r.TimeStamp, 10, 64); err == nil {
			ts = time.Unix(secs, 0).UTC()
		}
		transfers = append(transfers, models.Transfer{
			Hash:        r.Hash,
			From:        r.From,
			To:          r.To,
			Value:       r.Value,
			BlockNumber: block,
			Timestamp:   ts,
		})
	}
	return transfers, nil
}

// TokenHolders returns the first page of the explorer holder list
func (c *EtherscanClient) TokenHolders(ctx context.Context, chainID int64, address string, pageSize int) ([]models.Holder, error) {
	params := url.Values{
		"module":          {"token"},
		"action":          {"tokenholderlist"},
		"contractaddress": {address},
		"page":            {"1"},
		"offset":          {strconv.Itoa(pageSize)},
	}

	var holders []models.Holder
	if err := c.get(ctx, chainID, params, &holders); err != nil {
		return nil, fmt.Errorf("tokenholderlist %s: %w", address, err)
	}
	return holders, nil
}

func (c *EtherscanClient) get(ctx context.Context, chainID int64, params url.Values, out any) error {
	params.Set("chainid", strconv.FormatInt(chainID, 10))
	params.Set("apikey", c.apikey)
	endpoint := c.baseURL + "?" + params.Encode()

	return retry.Do(ctx, maxAttempts, c.retryDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return err
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("explorer returned HTTP %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return retry.Permanent(fmt.Errorf("explorer returned HTTP %d", resp.StatusCode))
		}

		var envelope apiResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			return retry.Permanent(fmt.Errorf("decode explorer response: %w", err))
		}

		if envelope.Status != "1" {
			// An empty history is reported as an error by the explorer.
			if strings.HasPrefix(envelope.Message, noTransactionsMessage) {
				return nil
			}
			detail := envelope.Message
			var text string
			if json.Unmarshal(envelope.Result, &text) == nil && text != "" {
				detail = text
			}
			apiErr := fmt.Errorf("%w: %s", ErrAPI, detail)
			if isRateLimited(detail) {
				return apiErr
			}
			return retry.Permanent(apiErr)
		}

		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return retry.Permanent(fmt.Errorf("decode explorer result: %w", err))
		}
		return nil
	})
}

func isRateLimited(detail string) bool {
	d := strings.ToLower(detail)
	return strings.Contains(d, "rate limit")
}
