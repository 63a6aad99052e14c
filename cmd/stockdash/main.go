package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"stockdash/internal/api"
	"stockdash/internal/chart"
	"stockdash/internal/config"
	"stockdash/internal/dashboard"
	"stockdash/internal/stream"
	"stockdash/internal/util"
	"stockdash/internal/watchlist"
)

func main() {
	cfgPath := "config/stockdash.yaml"
	if p := os.Getenv("STOCKDASH_CONFIG"); p != "" {
		cfgPath = p
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "path to the YAML config file")
	symbol := flag.String("symbol", "", "symbol to analyze on start")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logFile, err := util.NewFileLogger(cfg.Logging.File, "stockdash", cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	util.SetDefault(logger)

	transport, err := stream.NewTransport(cfg.FeedBase(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stream transport: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.NewClient(cfg.Server.BaseURL, cfg.Server.Timeout)
	streams := stream.NewManager(transport, logger.With("component", "stream"))
	defer streams.Close()

	// Optional Alpaca trading client for watchlist support.
	var wl *watchlist.Watchlist
	if cfg.Alpaca.Enabled() {
		ac := watchlist.NewAlpacaClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		wl = watchlist.New(ac, cfg.Alpaca.Watchlist, logger.With("component", "watchlist"))
		logger.Info("alpaca client initialized for watchlist")
	} else {
		wl = watchlist.New(nil, cfg.Alpaca.Watchlist, logger)
	}

	cal := util.NewTradingCalendar()
	canvas := chart.NewCanvas(80, 20)
	session := dashboard.NewSession(cfg.UI.DefaultPeriod)
	pipe := dashboard.NewPipeline(session, canvas, cal, logger.With("component", "pipeline"))
	policy := stream.Policy{TickerDelay: cfg.Stream.TickerRetry, ChartDelay: cfg.Stream.ChartRetry}
	ctrl := dashboard.NewController(ctx, session, pipe, client, streams, policy, logger.With("component", "controller"))
	poller := dashboard.NewPoller(ctx, cfg.Poller.Interval, session, pipe, client, logger.With("component", "poller"))

	logger.Info("stockdash starting",
		"base_url", cfg.Server.BaseURL,
		"feed_base", cfg.FeedBase(),
		"period", cfg.UI.DefaultPeriod,
		"watchlist", wl.Configured(),
	)

	m := newModel(modelDeps{
		ctx:         ctx,
		cancel:      cancel,
		client:      client,
		ctrl:        ctrl,
		poller:      poller,
		canvas:      canvas,
		cal:         cal,
		watchlist:   wl,
		ribbonSpeed: cfg.UI.RibbonSpeed,
		logger:      logger,
		initial:     *symbol,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		logger.Error("program exited", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("stockdash stopped")
}
