package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/arbitrage"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/config"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange/binance"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange/bybit"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange/kraken"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange/okx"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/metrics"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/orchestrator"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/risk"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/strategy"
)

const version = "v0.1.0"

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     "tradingcore",
		Short:   "Multi-venue cryptocurrency market-making and arbitrage core",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to configured venues and run the trading loop until interrupted",
		RunE:  runTradingCore,
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Load config and report which venues would be enabled, without connecting",
		RunE:  runHealthCheck,
	}

	rootCmd.AddCommand(runCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("tradingcore exited with error")
	}
}

func runHealthCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for name, vc := range map[string]*config.VenueCredentials{
		"binance": cfg.Venues.Binance, "kraken": cfg.Venues.Kraken,
		"okx": cfg.Venues.OKX, "bybit": cfg.Venues.Bybit,
	} {
		if vc != nil && vc.Enabled {
			fmt.Printf("%s: enabled, symbols=%v\n", name, vc.Symbols)
		}
	}
	return nil
}

func runTradingCore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	manager := exchange.NewManager()
	symbol, err := registerVenues(manager, cfg)
	if err != nil {
		return err
	}

	mm, err := buildMarketMaker(cfg.MarketMaker)
	if err != nil {
		return fmt.Errorf("build market maker: %w", err)
	}

	metricsRegistry := metrics.NewRegistry()

	riskLimits := risk.DefaultLimits()
	if cfg.Risk.Profile == "conservative" {
		riskLimits = risk.ConservativeLimits()
	}

	orchCfg := orchestrator.Config{
		Symbol:             symbol,
		MinVenuesToTrade:   2,
		ArbitrageEnabled:   cfg.Arbitrage.Enabled,
		MarketMakerEnabled: cfg.MarketMaker.Enabled,
		ArbConfig: arbitrage.Config{
			MinProfitBps:       cfg.Arbitrage.MinProfitBps,
			MaxPositionUSD:     cfg.Arbitrage.MaxPositionUSD,
			MinQuantity:        cfg.Arbitrage.MinQuantity,
			ExecutionTimeoutMS: cfg.Arbitrage.ExecutionTimeoutMS,
			FeeBps:             cfg.Arbitrage.FeeBps,
		},
		RiskLimits: riskLimits,
	}

	orch := orchestrator.New(orchCfg, manager, mm, metricsRegistry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port), orch)
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	log.Info().Msg("tradingcore running, press ctrl-c to stop")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return orch.Stop(shutdownCtx)
}

func registerVenues(manager *exchange.Manager, cfg *config.Config) (core.Symbol, error) {
	var symbol core.Symbol
	haveSymbol := false

	register := func(vc *config.VenueCredentials, build func(*config.VenueCredentials)) {
		if vc == nil || !vc.Enabled {
			return
		}
		build(vc)
		if !haveSymbol && len(vc.Symbols) > 0 {
			if s, err := core.ParseSymbol(vc.Symbols[0]); err == nil {
				symbol = s
				haveSymbol = true
			}
		}
	}

	register(cfg.Venues.Binance, func(vc *config.VenueCredentials) {
		manager.Register(binance.NewAdapter(binance.Config{
			APIKey: vc.APIKey, APISecret: vc.APISecret, Testnet: vc.Testnet, RecvWindow: vc.RecvWindow,
		}))
	})
	register(cfg.Venues.Kraken, func(vc *config.VenueCredentials) {
		manager.Register(kraken.NewAdapter(kraken.Config{APIKey: vc.APIKey, APISecret: vc.APISecret}))
	})
	register(cfg.Venues.OKX, func(vc *config.VenueCredentials) {
		manager.Register(okx.NewAdapter(okx.Config{
			APIKey: vc.APIKey, APISecret: vc.APISecret, Passphrase: vc.Passphrase, Demo: vc.Testnet,
		}))
	})
	register(cfg.Venues.Bybit, func(vc *config.VenueCredentials) {
		manager.Register(bybit.NewAdapter(bybit.Config{
			APIKey: vc.APIKey, APISecret: vc.APISecret, Testnet: vc.Testnet, RecvWindow: vc.RecvWindow,
		}))
	})

	if !haveSymbol {
		return core.Symbol{}, fmt.Errorf("no enabled venue configured a trading symbol")
	}
	return symbol, nil
}

func buildMarketMaker(cfg config.MarketMakerConfig) (strategy.MarketMaker, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	params := strategy.DefaultParams()
	if cfg.MinSpreadBps > 0 {
		params.MinSpreadBps = cfg.MinSpreadBps
	}
	if cfg.MaxSpreadBps > 0 {
		params.MaxSpreadBps = cfg.MaxSpreadBps
	}
	if cfg.TargetSpreadBps > 0 {
		params.TargetSpreadBps = cfg.TargetSpreadBps
	}
	if cfg.MaxPosition > 0 {
		params.MaxPosition = core.ToQuantity(cfg.MaxPosition)
	}
	if cfg.InventorySkew > 0 {
		params.InventorySkew = cfg.InventorySkew
	}
	if cfg.DefaultOrderSize > 0 {
		params.DefaultOrderSize = core.ToQuantity(cfg.DefaultOrderSize)
	}
	if cfg.MinOrderSize > 0 {
		params.MinOrderSize = core.ToQuantity(cfg.MinOrderSize)
	}
	if cfg.MaxOrderSize > 0 {
		params.MaxOrderSize = core.ToQuantity(cfg.MaxOrderSize)
	}
	if cfg.QuoteRefreshUS > 0 {
		params.QuoteRefreshUS = cfg.QuoteRefreshUS
	}
	if cfg.MinQuoteLifeUS > 0 {
		params.MinQuoteLifeUS = cfg.MinQuoteLifeUS
	}

	switch cfg.Strategy {
	case "", "basic":
		return strategy.NewBasicMarketMaker(params), nil
	case "avellaneda_stoikov":
		gamma, sigma, k, tHorizon := cfg.Gamma, cfg.Sigma, cfg.K, cfg.THorizonSeconds
		if gamma == 0 {
			gamma = 0.1
		}
		if sigma == 0 {
			sigma = 0.01
		}
		if k == 0 {
			k = 1.5
		}
		if tHorizon == 0 {
			tHorizon = 1.0
		}
		return strategy.NewAvellanedaStoikovMM(params, gamma, sigma, k, tHorizon), nil
	default:
		return nil, fmt.Errorf("unknown market maker strategy %q", cfg.Strategy)
	}
}
