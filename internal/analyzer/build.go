package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/advisory"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/chain"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/circuitbreaker"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/config"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/contract"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/eventbus"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/health"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/history"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/market"
)

// explorerHolders adapts the explorer holder-list estimate to HolderFetcher
type explorerHolders struct {
	client   *contract.EtherscanClient
	pageSize int
}

func (e explorerHolders) TopHoldersPercent(ctx context.Context, network chain.Network, address string) (float64, error) {
	return e.client.TopHoldersPercent(ctx, network.ChainID, address, e.pageSize)
}

// fanout publishes to every sink and joins their errors
type fanout []EventPublisher

func (f fanout) PublishAssessed(ctx context.Context, r *history.Record) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishAssessed(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stack is an Analyzer plus the infrastructure it was built on
type Stack struct {
	Analyzer *Analyzer
	History  history.Store
	Health   *health.Registry

	closers []func()
}

// Close releases connections in reverse order of creation
func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Build wires every collaborator from configuration. Optional infrastructure
// (PostgreSQL history, NATS events) is enabled only when its URL is set.
// sinks receive every stored assessment alongside NATS.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, sinks ...EventPublisher) (*Stack, error) {
	stack := &Stack{Health: health.NewRegistry(0)}
	events := fanout(sinks)

	readers, err := chain.DialAll(ctx, cfg.RPCURLs)
	if err != nil {
		return nil, err
	}
	stack.closers = append(stack.closers, readers.Close)

	explorer := contract.NewEtherscanClient(cfg.EtherscanAPIKey, cfg.EtherscanBaseURL, cfg.FetchTimeout)

	var quotes QuoteFetcher
	switch cfg.LiquiditySource {
	case config.LiquiditySourceDexScreener:
		quotes = market.NewDexScreenerClient(cfg.DexScreenerBaseURL, cfg.FetchTimeout)
	default:
		quotes = market.NewCoinGeckoClient(cfg.CoinGeckoBaseURL, cfg.FetchTimeout)
	}

	var holders HolderFetcher = explorerHolders{client: explorer, pageSize: cfg.HolderPageSize}
	if cfg.HolderSource == config.HolderSourceHoneypot {
		holders = market.NewHoneyPotClient(cfg.HoneypotBaseURL, cfg.FetchTimeout)
	}

	opts := Options{
		Metadata:            readers,
		Source:              explorer,
		Transfers:           explorer,
		Holders:             holders,
		Market:              quotes,
		Breaker:             circuitbreaker.New(cfg.BreakerThreshold, cfg.BreakerOpenDuration),
		FetchTimeout:        cfg.FetchTimeout,
		AdvisoryTimeout:     cfg.AdvisoryTimeout,
		TransactionPageSize: cfg.TransactionPageSize,
		Logger:              logger,
	}
	if cfg.AdvisoryEnabled() {
		opts.Advisory = advisory.NewClient(cfg.AdvisoryAPIKey, cfg.AdvisoryBaseURL, cfg.AdvisoryModel, cfg.AdvisoryTimeout)
	} else {
		logger.Info("advisory review disabled (no OPENAI_API_KEY set)")
	}

	if cfg.DatabaseURL != "" {
		db, err := history.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			stack.Close()
			return nil, err
		}
		stack.closers = append(stack.closers, func() { _ = db.Close() })

		store := history.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			stack.Close()
			return nil, fmt.Errorf("failed to migrate history store: %w", err)
		}
		stack.History = store
		logger.Info("using PostgreSQL history store")
	} else {
		stack.History = history.NewMemoryStore()
		logger.Info("using in-memory history store (no DATABASE_URL set)")
	}
	opts.History = stack.History
	stack.Health.Register("history", func(ctx context.Context) health.Status {
		if err := stack.History.Ping(ctx); err != nil {
			return health.Status{Healthy: false, Detail: err.Error()}
		}
		return health.Status{Healthy: true}
	})

	if cfg.NATSURL != "" {
		publisher, err := eventbus.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			stack.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		stack.closers = append(stack.closers, publisher.Close)
		events = append(events, publisher)
		stack.Health.Register("eventbus", func(ctx context.Context) health.Status {
			if !publisher.IsConnected() {
				return health.Status{Healthy: false, Detail: "not connected"}
			}
			return health.Status{Healthy: true}
		})
	}

	if len(events) > 0 {
		opts.Events = events
	}
	stack.Analyzer = New(opts)
	return stack, nil
}
