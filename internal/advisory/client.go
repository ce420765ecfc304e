package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/retry"
)

var (
	// ErrNotConfigured means no API key is set; callers fall back to Default
	ErrNotConfigured = errors.New("advisory: no API key configured")
	ErrEmptyResponse = errors.New("advisory: response has no choices")
)

const (
	// MaxSourceChars bounds how much contract source is sent for review
	MaxSourceChars  = 5000
	TruncatedMarker = "...[source truncated]"

	systemPrompt = "You are a smart contract security analyst. Review the contract source " +
		"for risks including privileged access, reentrancy, overflow and logic flaws. " +
		`Reply with a JSON object {"analysis": string, "score": number} where score is ` +
		"a safety score from 1 to 100 and higher means safer."

	maxAttempts    = 2
	retryBaseDelay = time.Second
	maxBodyBytes   = 1 << 20
)

// Client calls an OpenAI-compatible chat completions endpoint
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	retryDelay time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: retryBaseDelay,
	}
}

// TruncateSource caps source at MaxSourceChars characters, appending a marker when cut
func TruncateSource(source string) string {
	runes := []rune(source)
	if len(runes) <= MaxSourceChars {
		return source
	}
	return string(runes[:MaxSourceChars]) + TruncatedMarker
}

// Review sends contract source for review and returns the raw reply text.
// The reply is free-form; pass it to Normalize.
func (c *Client) Review(ctx context.Context, source string) (string, error) {
	if c == nil || c.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: TruncateSource(source)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("advisory: encode request: %w", err)
	}

	var content string
	err = retry.Do(ctx, maxAttempts, c.retryDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return err
		}

		var decoded chatResponse
		decodeErr := json.Unmarshal(body, &decoded)

		if resp.StatusCode != http.StatusOK {
			msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
			if decodeErr == nil && decoded.Error != nil {
				msg += ": " + decoded.Error.Message
			}
			statusErr := fmt.Errorf("advisory: %s", msg)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return statusErr
			}
			return retry.Permanent(statusErr)
		}

		if decodeErr != nil {
			return retry.Permanent(fmt.Errorf("advisory: decode response: %w", decodeErr))
		}
		if len(decoded.Choices) == 0 {
			return retry.Permanent(ErrEmptyResponse)
		}
		content = decoded.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}
