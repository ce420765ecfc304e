package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/analyzer"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/config"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/history"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/logging"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/scoring"
)

// WatchlistEntry is one token of a watchlist file
type WatchlistEntry struct {
	Address string `json:"contract_address" yaml:"contract_address"`
	Network string `json:"network,omitempty" yaml:"network,omitempty"`
	Symbol  string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
}

func main() {
	file := flag.String("file", "", "watchlist file (.json, .yaml or .yml)")
	network := flag.String("network", "", "network for entries without one (default DEFAULT_NETWORK)")
	delay := flag.Duration("delay", 2*time.Second, "pause between tokens to respect upstream rate limits")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-file watchlist.yaml] [-network bsc] [address ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}
	if *network == "" {
		*network = cfg.DefaultNetwork
	}

	entries := make([]WatchlistEntry, 0, flag.NArg())
	if *file != "" {
		loaded, err := readWatchlist(*file)
		if err != nil {
			fmt.Println("ERROR:", err)
			os.Exit(1)
		}
		entries = append(entries, loaded...)
	}
	for _, addr := range flag.Args() {
		entries = append(entries, WatchlistEntry{Address: addr})
	}
	if len(entries) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Progress goes to stdout, so only warnings are logged
	logger := logging.New("warn", cfg.LogFormat)
	stack, err := analyzer.Build(ctx, cfg, logger)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}
	defer stack.Close()

	fmt.Printf("Token Risk Screening\n")
	fmt.Printf("Total: %d tokens\n\n", len(entries))

	levels := map[scoring.RiskLevel]int{}
	passed, failed := 0, 0

	for i, entry := range entries {
		if ctx.Err() != nil {
			fmt.Println("Interrupted")
			break
		}
		net := entry.Network
		if net == "" {
			net = *network
		}

		fmt.Printf("[%d/%d] %s (%s on %s)\n", i+1, len(entries), displaySymbol(entry), entry.Address, net)

		record, err := stack.Analyzer.Analyze(ctx, net, entry.Address)
		if err != nil {
			failed++
			fmt.Printf("  ERROR: %v\n\n", err)
			continue
		}

		printRecord(record)
		levels[record.RiskLevel]++
		if record.RiskLevel == scoring.RiskLow || record.RiskLevel == scoring.RiskMedium {
			passed++
		}

		if i < len(entries)-1 && *delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(*delay):
			}
		}
	}

	analyzed := len(entries) - failed
	pct := 0.0
	if analyzed > 0 {
		pct = float64(passed) / float64(analyzed) * 100
	}
	fmt.Printf("Summary: %d/%d passed (%.1f%%) | Low: %d Medium: %d High: %d Extreme: %d | Errors: %d\n",
		passed, analyzed, pct,
		levels[scoring.RiskLow], levels[scoring.RiskMedium], levels[scoring.RiskHigh], levels[scoring.RiskExtreme],
		failed)
}

func printRecord(r *history.Record) {
	a := r.Assessment
	d := a.Details

	fmt.Printf("  Token: %s (%s) | Supply: %s | Decimals: %d\n",
		a.Token.Name, a.Token.Symbol, a.Token.TotalSupply, a.Token.Decimals)
	fmt.Printf("  Verified: %t | Liq: $%.0f | Price: $%g | Top holders: %.0f%% | Txs: %d (%d addrs)\n",
		d.Contract.OpenSource,
		d.Liquidity.LiquidityUSD,
		d.Liquidity.PriceUSD,
		d.Liquidity.TopHoldersPercent,
		d.Transaction.RecentTransactions,
		d.Transaction.UniqueAddresses,
	)
	fmt.Printf("  Score: %d (L:%d C:%d T:%d) | Advisory: %d\n",
		a.Score, d.Liquidity.Score, d.Contract.Score, d.Transaction.Score, d.Contract.Advisory.Score)

	if len(d.Contract.DangerousFunctions) > 0 {
		labels := make([]string, len(d.Contract.DangerousFunctions))
		for i, l := range d.Contract.DangerousFunctions {
			labels[i] = string(l)
		}
		fmt.Printf("  Findings: %s\n", strings.Join(labels, ", "))
	}

	fmt.Printf("  Result: %s RISK\n", strings.ToUpper(string(a.RiskLevel)))
	for _, rec := range a.Recommendations {
		fmt.Printf("    - %s\n", rec)
	}
	fmt.Println()
}

func displaySymbol(e WatchlistEntry) string {
	if e.Symbol != "" {
		return e.Symbol
	}
	return "token"
}

func readWatchlist(fileName string) ([]WatchlistEntry, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("reading watchlist: %w", err)
	}

	var entries []WatchlistEntry
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing watchlist %s: %w", fileName, err)
	}
	return entries, nil
}
