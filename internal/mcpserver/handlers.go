package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/chain"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/history"
)

// Analyzer runs one assessment
type Analyzer interface {
	Analyze(ctx context.Context, network, address string) (*history.Record, error)
}

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	analyzer       Analyzer
	history        history.Store
	defaultNetwork string
}

// NewHandlers creates handlers backed by an in-process analyzer and store.
func NewHandlers(a Analyzer, store history.Store, defaultNetwork string) *Handlers {
	if defaultNetwork == "" {
		defaultNetwork = "ethereum"
	}
	return &Handlers{analyzer: a, history: store, defaultNetwork: defaultNetwork}
}

// HandleAnalyzeToken runs a fresh analysis.
func (h *Handlers) HandleAnalyzeToken(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := req.GetString("address", "")
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}
	network := req.GetString("network", h.defaultNetwork)

	record, err := h.analyzer.Analyze(ctx, network, address)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	return mcp.NewToolResultText(formatRecord(record)), nil
}

// HandleTokenHistory lists stored assessments.
func (h *Handlers) HandleTokenHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.history == nil {
		return mcp.NewToolResultError("assessment history is not available"), nil
	}

	address, err := chain.NormalizeAddress(req.GetString("address", ""))
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	network := req.GetString("network", "")
	if network != "" {
		if _, err := chain.Lookup(network); err != nil {
			return mcp.NewToolResultError(describeError(err)), nil
		}
	}

	records, err := h.history.List(ctx, history.Query{
		Address: address,
		Network: network,
		Limit:   req.GetInt("limit", history.DefaultListLimit),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load history: %v", err)), nil
	}
	return mcp.NewToolResultText(formatHistory(address, records)), nil
}

// HandleListNetworks describes the supported networks.
func (h *Handlers) HandleListNetworks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	sb.WriteString("Supported networks:\n")
	for _, name := range chain.Names() {
		n, _ := chain.Lookup(name)
		marker := ""
		if name == h.defaultNetwork {
			marker = " (default)"
		}
		fmt.Fprintf(&sb, "  - %s: chain ID %d%s\n", n.Name, n.ChainID, marker)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func describeError(err error) string {
	switch {
	case errors.Is(err, chain.ErrInvalidAddress):
		return "Invalid address: expected 0x followed by 40 hex characters."
	case errors.Is(err, chain.ErrUnsupportedNetwork):
		return fmt.Sprintf("Unsupported network. Use one of: %s.", strings.Join(chain.Names(), ", "))
	default:
		return fmt.Sprintf("Analysis failed: %v", err)
	}
}

func formatRecord(r *history.Record) string {
	a := r.Assessment
	d := a.Details

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s) on %s\n", a.Token.Name, a.Token.Symbol, r.Network)
	fmt.Fprintf(&sb, "Address: %s\n", r.Address)
	fmt.Fprintf(&sb, "Score: %d/100 | Risk: %s\n\n", a.Score, a.RiskLevel)

	fmt.Fprintf(&sb, "Liquidity (%d): $%.0f liquidity, top holders %.0f%%\n",
		d.Liquidity.Score, d.Liquidity.LiquidityUSD, d.Liquidity.TopHoldersPercent)

	verified := "unverified source"
	if d.Contract.OpenSource {
		verified = "verified source"
	}
	fmt.Fprintf(&sb, "Contract (%d): %s", d.Contract.Score, verified)
	if len(d.Contract.DangerousFunctions) > 0 {
		labels := make([]string, len(d.Contract.DangerousFunctions))
		for i, l := range d.Contract.DangerousFunctions {
			labels[i] = string(l)
		}
		fmt.Fprintf(&sb, ", findings: %s", strings.Join(labels, ", "))
	}
	sb.WriteString("\n")
	if d.Contract.Advisory.Analysis != "" {
		fmt.Fprintf(&sb, "  Review (%d): %s\n", d.Contract.Advisory.Score, d.Contract.Advisory.Analysis)
	}

	fmt.Fprintf(&sb, "Transactions (%d): %d recent, %d unique addresses\n",
		d.Transaction.Score, d.Transaction.RecentTransactions, d.Transaction.UniqueAddresses)

	if len(a.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(&sb, "  - %s\n", rec)
		}
	}
	return sb.String()
}

func formatHistory(address string, records []*history.Record) string {
	if len(records) == 0 {
		return fmt.Sprintf("No assessments recorded for %s.", address)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d assessment(s) for %s:\n\n", len(records), address)
	for i, r := range records {
		fmt.Fprintf(&sb, "%d. %s | %s | score %d (%s)\n",
			i+1, r.CreatedAt.Format("2006-01-02 15:04:05 UTC"), r.Network, r.Score, r.RiskLevel)
	}
	if trend := describeTrend(records); trend != "" {
		fmt.Fprintf(&sb, "\n%s\n", trend)
	}
	return sb.String()
}

// describeTrend compares the newest and oldest listed scores
func describeTrend(records []*history.Record) string {
	if len(records) < 2 {
		return ""
	}
	newest, oldest := records[0], records[len(records)-1]
	delta := newest.Score - oldest.Score
	switch {
	case delta > 0:
		return fmt.Sprintf("Trend: improved by %d points since %s.", delta, oldest.CreatedAt.Format("2006-01-02"))
	case delta < 0:
		return fmt.Sprintf("Trend: worsened by %d points since %s.", -delta, oldest.CreatedAt.Format("2006-01-02"))
	default:
		return "Trend: unchanged."
	}
}
