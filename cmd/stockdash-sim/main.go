package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockdash/internal/config"
	"stockdash/internal/feedsim"
	"stockdash/internal/news"
	"stockdash/internal/util"
)

func main() {
	cfgPath := "config/stockdash.yaml"
	if p := os.Getenv("STOCKDASH_CONFIG"); p != "" {
		cfgPath = p
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "path to the YAML config file")
	seed := flag.Int64("seed", 0, "random seed (0 uses the clock)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := feedsim.Options{
		Symbols:     cfg.Sim.Symbols,
		TickerEvery: cfg.Sim.TickerEvery,
		ChartEvery:  cfg.Sim.ChartEvery,
		Seed:        *seed,
		Debug:       cfg.Logging.Level == "debug",
	}
	// Real headlines when Alpaca credentials are available.
	if cfg.Alpaca.Enabled() {
		opts.News = news.NewAlpacaSource(news.NewAlpacaClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret))
		logger.Info("alpaca news source enabled")
	}
	srv := feedsim.New(opts, logger.With("component", "feedsim"))

	addr := fmt.Sprintf(":%d", cfg.Sim.Port)
	if err := srv.Run(ctx, addr); err != nil {
		logger.Error("simulator failed", "error", err)
		os.Exit(1)
	}
	logger.Info("simulator stopped")
}
