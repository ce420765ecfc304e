// Package analyzer gathers token facts from upstream collaborators, runs the
// scoring engine and records the result.
//
// Collaborator failures never fail an analysis: each failed fetch is logged
// and replaced by a pessimistic default before scoring.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/chain"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/circuitbreaker"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/contract"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/history"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/logging"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/market"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/metrics"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/models"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/scoring"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/traces"
)

var (
	ErrInvalidAddress     = chain.ErrInvalidAddress
	ErrUnsupportedNetwork = chain.ErrUnsupportedNetwork
)

// Collaborator names, used as breaker keys, metric labels and span names
const (
	CollabMetadata  = "rpc.metadata"
	CollabSource    = "explorer.source"
	CollabTransfers = "explorer.transfers"
	CollabHolders   = "holders"
	CollabMarket    = "market"
	CollabAdvisory  = "advisory"
)

const (
	defaultFetchTimeout    = 10 * time.Second
	defaultAdvisoryTimeout = 30 * time.Second
	defaultPageSize        = 100
)

// MetadataReader reads ERC-20 metadata on a named network
type MetadataReader interface {
	Metadata(ctx context.Context, network, address string) (models.TokenMetadata, error)
}

// SourceFetcher returns verified contract source, "" when unverified
type SourceFetcher interface {
	SourceCode(ctx context.Context, chainID int64, address string) (string, error)
}

// TransferFetcher returns the most recent token transfers
type TransferFetcher interface {
	TokenTransfers(ctx context.Context, chainID int64, address string, pageSize int) ([]models.Transfer, error)
}

// HolderFetcher returns the percent of supply held by the top holders
type HolderFetcher interface {
	TopHoldersPercent(ctx context.Context, network chain.Network, address string) (float64, error)
}

// QuoteFetcher returns price and liquidity
type QuoteFetcher interface {
	Quote(ctx context.Context, network chain.Network, address string) (market.Quote, error)
}

// Reviewer returns a free-form advisory opinion on contract source
type Reviewer interface {
	Review(ctx context.Context, source string) (string, error)
}

// EventPublisher announces stored assessments
type EventPublisher interface {
	PublishAssessed(ctx context.Context, r *history.Record) error
}

// Options configures an Analyzer. A nil collaborator leaves its default in
// place; nil History and Events are skipped.
type Options struct {
	Metadata  MetadataReader
	Source    SourceFetcher
	Transfers TransferFetcher
	Holders   HolderFetcher
	Market    QuoteFetcher
	Advisory  Reviewer

	History history.Store
	Events  EventPublisher
	Breaker *circuitbreaker.Breaker

	FetchTimeout        time.Duration
	AdvisoryTimeout     time.Duration
	TransactionPageSize int

	Logger *slog.Logger
	Now    func() time.Time
}

type Analyzer struct {
	opts Options
}

func New(opts Options) *Analyzer {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.AdvisoryTimeout <= 0 {
		opts.AdvisoryTimeout = defaultAdvisoryTimeout
	}
	if opts.TransactionPageSize <= 0 {
		opts.TransactionPageSize = defaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analyzer{opts: opts}
}

// facts is everything the scoring engine needs, filled concurrently.
// Each field is written by exactly one goroutine.
type facts struct {
	metadata    models.TokenMetadata
	source      string
	advisoryRaw *string
	quote       market.Quote
	topHolders  float64
	transfers   []models.Transfer
}

// Analyze assesses the token at address on network. It fails only on invalid
// input or a cancelled context; upstream failures degrade to defaults.
func (a *Analyzer) Analyze(ctx context.Context, networkName, address string) (*history.Record, error) {
	network, err := chain.Lookup(networkName)
	if err != nil {
		return nil, err
	}
	address, err = chain.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithDefault(ctx, a.opts.Logger)
	ctx, span := traces.StartSpan(ctx, "analyze", traces.TokenAddress(address), traces.Network(network.Name))
	defer span.End()

	f := a.gather(ctx, network, address)
	if err := ctx.Err(); err != nil {
		traces.RecordError(span, err)
		return nil, err
	}

	token := models.TokenFacts{
		Address:           address,
		Name:              f.metadata.Name,
		Symbol:            f.metadata.Symbol,
		TotalSupply:       f.metadata.TotalSupply,
		Decimals:          f.metadata.Decimals,
		RawContractSource: f.source,
	}
	liquidity := models.LiquidityFacts{
		LiquidityUSD:      f.quote.LiquidityUSD,
		PriceUSD:          f.quote.PriceUSD,
		TopHoldersPercent: f.topHolders,
	}
	assessment := scoring.Analyze(token, liquidity, models.TransactionFacts{Transfers: f.transfers}, f.advisoryRaw)

	span.SetAttributes(traces.Score(assessment.Score), traces.RiskLevel(string(assessment.RiskLevel)))
	metrics.AnalysesTotal.WithLabelValues(network.Name, string(assessment.RiskLevel)).Inc()
	metrics.RiskScore.Observe(float64(assessment.Score))

	record := history.NewRecord(network.Name, address, assessment, a.opts.Now())
	a.persist(ctx, record)

	logging.L(ctx).Info("token analyzed",
		"network", network.Name,
		"address", address,
		"symbol", token.Symbol,
		"score", assessment.Score,
		"risk_level", assessment.RiskLevel,
	)
	return record, nil
}

func (a *Analyzer) gather(ctx context.Context, network chain.Network, address string) facts {
	f := facts{
		metadata:   models.UnknownMetadata(),
		topHolders: contract.HolderFetchFailedPercent,
		transfers:  []models.Transfer{},
	}
	o := a.opts

	var g errgroup.Group

	// Contract branch
	g.Go(func() error {
		if o.Metadata == nil {
			return nil
		}
		meta, err := fetch(ctx, a, network, CollabMetadata, o.FetchTimeout, func(ctx context.Context) (models.TokenMetadata, error) {
			return o.Metadata.Metadata(ctx, network.Name, address)
		})
		if err == nil {
			f.metadata = meta
		}
		return nil
	})
	g.Go(func() error {
		if o.Source == nil {
			return nil
		}
		src, err := fetch(ctx, a, network, CollabSource, o.FetchTimeout, func(ctx context.Context) (string, error) {
			return o.Source.SourceCode(ctx, network.ChainID, address)
		})
		if err != nil || src == "" {
			return nil
		}
		f.source = src

		if o.Advisory == nil {
			return nil
		}
		raw, err := fetch(ctx, a, network, CollabAdvisory, o.AdvisoryTimeout, func(ctx context.Context) (string, error) {
			return o.Advisory.Review(ctx, src)
		})
		if err == nil {
			f.advisoryRaw = &raw
		}
		return nil
	})

	// Liquidity branch
	g.Go(func() error {
		if o.Market == nil {
			return nil
		}
		q, err := fetch(ctx, a, network, CollabMarket, o.FetchTimeout, func(ctx context.Context) (market.Quote, error) {
			return o.Market.Quote(ctx, network, address)
		})
		if err == nil {
			f.quote = q
		}
		return nil
	})
	g.Go(func() error {
		if o.Holders == nil {
			return nil
		}
		pct, err := fetch(ctx, a, network, CollabHolders, o.FetchTimeout, func(ctx context.Context) (float64, error) {
			return o.Holders.TopHoldersPercent(ctx, network, address)
		})
		if err == nil {
			f.topHolders = pct
		}
		return nil
	})

	// Transaction branch
	g.Go(func() error {
		if o.Transfers == nil {
			return nil
		}
		txs, err := fetch(ctx, a, network, CollabTransfers, o.FetchTimeout, func(ctx context.Context) ([]models.Transfer, error) {
			return o.Transfers.TokenTransfers(ctx, network.ChainID, address, o.TransactionPageSize)
		})
		if err == nil && txs != nil {
			f.transfers = txs
		}
		return nil
	})

	_ = g.Wait()
	return f
}

type result[T any] struct {
	value T
	err   error
}

// fetch runs call under a timeout, the circuit breaker, a span and metrics.
// The timeout holds even when call ignores its context: the late result is dropped.
// A fetch cut short by the caller's own context is not held against the collaborator.
func fetch[T any](ctx context.Context, a *Analyzer, network chain.Network, name string, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	parent, span := traces.StartSpan(ctx, "fetch."+name, traces.Collaborator(name), traces.Network(network.Name))
	defer span.End()

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	var value T
	start := time.Now()
	err := a.opts.Breaker.Do(name+"/"+network.Name, func() error {
		done := make(chan result[T], 1)
		go func() {
			v, err := call(ctx)
			done <- result[T]{value: v, err: err}
		}()

		var err error
		select {
		case r := <-done:
			value = r.value
			err = r.err
		case <-ctx.Done():
			err = ctx.Err()
		}
		if err != nil && parent.Err() != nil {
			return fmt.Errorf("%w: %w", circuitbreaker.ErrAbandoned, parent.Err())
		}
		return err
	})
	metrics.CollaboratorDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if errors.Is(err, circuitbreaker.ErrAbandoned) {
		logging.L(ctx).Debug("fetch abandoned by caller", "collaborator", name, "network", network.Name)
		var zero T
		return zero, err
	}
	if err != nil {
		metrics.CollaboratorFailuresTotal.WithLabelValues(name).Inc()
		traces.RecordError(span, err)
		logging.L(ctx).Warn("collaborator unavailable, using default",
			"collaborator", name,
			"network", network.Name,
			"error", err,
		)
		var zero T
		return zero, err
	}
	return value, nil
}

// persist stores and announces the record. Failures are logged, never returned.
func (a *Analyzer) persist(ctx context.Context, record *history.Record) {
	if a.opts.History != nil {
		if err := a.opts.History.Save(ctx, record); err != nil {
			logging.L(ctx).Error("failed to save assessment", "id", record.ID, "error", err)
		}
	}

	if a.opts.Events != nil {
		if err := a.opts.Events.PublishAssessed(ctx, record); err != nil {
			metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
			logging.L(ctx).Warn("failed to publish assessment event", "id", record.ID, "error", err)
		} else {
			metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
		}
	}
}
