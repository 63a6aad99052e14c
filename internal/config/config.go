package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the stockdash client and its
// development feed simulator.
type Config struct {
	Server  Server  `yaml:"server"`
	Stream  Stream  `yaml:"stream"`
	Poller  Poller  `yaml:"poller"`
	UI      UI      `yaml:"ui"`
	Alpaca  Alpaca  `yaml:"alpaca"`
	Logging Logging `yaml:"logging"`
	Sim     Sim     `yaml:"sim"`
}

// Server locates the analysis backend.
type Server struct {
	BaseURL string `yaml:"base_url"`
	// StreamURL overrides the base for the two push feeds. A ws:// or
	// wss:// value switches the feeds to WebSocket framing.
	StreamURL string        `yaml:"stream_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Stream holds the fixed reconnect delays for the push feeds.
type Stream struct {
	TickerRetry time.Duration `yaml:"ticker_retry"`
	ChartRetry  time.Duration `yaml:"chart_retry"`
}

// Poller controls the static refresh loop.
type Poller struct {
	Interval time.Duration `yaml:"interval"`
}

// UI holds terminal presentation settings.
type UI struct {
	DefaultPeriod string        `yaml:"default_period"`
	RibbonSpeed   time.Duration `yaml:"ribbon_speed"`
}

// Alpaca holds credentials for the optional watchlist toggle.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	Watchlist string `yaml:"watchlist"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Sim configures the development feed simulator.
type Sim struct {
	Port        int           `yaml:"port"`
	Symbols     []string      `yaml:"symbols"`
	TickerEvery time.Duration `yaml:"ticker_every"`
	ChartEvery  time.Duration `yaml:"chart_every"`
}

// Enabled reports whether Alpaca credentials are present.
func (a Alpaca) Enabled() bool {
	return a.APIKey != "" && a.APISecret != ""
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: Server{
			BaseURL: "http://127.0.0.1:5000",
			Timeout: 30 * time.Second,
		},
		Stream: Stream{
			TickerRetry: 3000 * time.Millisecond,
			ChartRetry:  2000 * time.Millisecond,
		},
		Poller: Poller{Interval: 60 * time.Second},
		UI: UI{
			DefaultPeriod: "1y",
			RibbonSpeed:   150 * time.Millisecond,
		},
		Alpaca: Alpaca{
			BaseURL:   "https://paper-api.alpaca.markets",
			Watchlist: "stockdash",
		},
		Logging: Logging{Level: "info"},
		Sim: Sim{
			Port:        5000,
			Symbols:     []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "JPM", "V", "SPY"},
			TickerEvery: 5 * time.Second,
			ChartEvery:  5 * time.Second,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path over the defaults
// and then applies environment variable overrides. A missing file is not an
// error. Values from a .env file in the working directory are exported first.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load(".env")

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnvOverrides(cfg)
	cfg.normalize()

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STOCKDASH_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("STOCKDASH_STREAM_URL"); v != "" {
		cfg.Server.StreamURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// normalize fills zero values a partial file may leave behind.
func (c *Config) normalize() {
	d := Default()
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	c.Server.StreamURL = strings.TrimRight(c.Server.StreamURL, "/")
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = d.Server.BaseURL
	}
	if c.Server.Timeout <= 0 {
		c.Server.Timeout = d.Server.Timeout
	}
	if c.Stream.TickerRetry <= 0 {
		c.Stream.TickerRetry = d.Stream.TickerRetry
	}
	if c.Stream.ChartRetry <= 0 {
		c.Stream.ChartRetry = d.Stream.ChartRetry
	}
	if c.Poller.Interval <= 0 {
		c.Poller.Interval = d.Poller.Interval
	}
	if c.UI.DefaultPeriod == "" {
		c.UI.DefaultPeriod = d.UI.DefaultPeriod
	}
	if c.UI.RibbonSpeed <= 0 {
		c.UI.RibbonSpeed = d.UI.RibbonSpeed
	}
	if c.Sim.Port == 0 {
		c.Sim.Port = d.Sim.Port
	}
	if len(c.Sim.Symbols) == 0 {
		c.Sim.Symbols = d.Sim.Symbols
	}
	if c.Sim.TickerEvery <= 0 {
		c.Sim.TickerEvery = d.Sim.TickerEvery
	}
	if c.Sim.ChartEvery <= 0 {
		c.Sim.ChartEvery = d.Sim.ChartEvery
	}
}

// FeedBase returns the URL the push feeds are opened against.
func (c *Config) FeedBase() string {
	if c.Server.StreamURL != "" {
		return c.Server.StreamURL
	}
	return c.Server.BaseURL
}
