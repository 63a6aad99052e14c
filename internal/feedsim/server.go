// Package feedsim is a development backend for the dashboard. It serves the
// analysis endpoints with simulated data and pushes random-walk ticker and
// intraday samples over SSE and WebSocket.
package feedsim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"stockdash/internal/api"
	"stockdash/internal/news"
	"stockdash/internal/stream"
)

const (
	writeWait  = 2 * time.Second
	tickerSize = 10
)

// Options configures a simulator.
type Options struct {
	Symbols     []string
	TickerEvery time.Duration
	ChartEvery  time.Duration
	Seed        int64
	Debug       bool
	Now         func() time.Time
	// News supplies real headlines. Simulated ones are used when it is nil
	// or fails.
	News news.Source
}

// Server is the simulated backend.
type Server struct {
	opts   Options
	log    *slog.Logger
	market *Market
	engine *gin.Engine
}

// New builds a simulator and its routes.
func New(opts Options, log *slog.Logger) *Server {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.TickerEvery <= 0 {
		opts.TickerEvery = 5 * time.Second
	}
	if opts.ChartEvery <= 0 {
		opts.ChartEvery = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		opts:   opts,
		log:    log,
		market: NewMarket(opts.Symbols, opts.Seed, opts.Now),
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLog())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	a := s.engine.Group("/api")
	a.POST("/stock", s.handleStock)
	a.POST("/news", s.handleNews)
	a.POST("/strategy", s.handleStrategy)
	a.POST("/options", s.handleOptions)
	a.POST("/livechart", s.handleLiveChart)
	a.POST("/chat", s.handleChat)
	a.GET("/health", s.handleHealth)

	s.engine.GET("/stream/ticker", s.sseTicker)
	s.engine.GET("/stream/chart/:symbol", s.sseChart)
	s.engine.GET("/ws/stream/ticker", s.wsTicker)
	s.engine.GET("/ws/stream/chart/:symbol", s.wsChart)
}

// requestLog logs each request through slog instead of gin's writer.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Market returns the simulated market.
func (s *Server) Market() *Market { return s.market }

// Run steps the market and serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	go func() {
		t := time.NewTicker(s.opts.ChartEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.market.Step()
			}
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("simulator listening", "addr", addr, "symbols", len(s.market.Symbols()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"symbols": s.market.Symbols(),
		"clock":   s.market.Clock().Format(minuteLayout),
	})
}

// ---------------------------------------------------------------------------
// Samples
// ---------------------------------------------------------------------------

// TickerSample is the ribbon payload for the configured symbols.
func (s *Server) TickerSample() stream.TickerSample {
	quotes := s.market.Ticker(tickerSize)
	out := stream.TickerSample{
		Stocks:    make([]stream.TickerQuote, 0, len(quotes)),
		Timestamp: s.market.Now().Format(clockLayout),
	}
	for _, q := range quotes {
		out.Stocks = append(out.Stocks, stream.TickerQuote{
			Symbol:    q.Symbol,
			Price:     q.Price,
			Change:    round2(q.Change()),
			ChangePct: round2(q.ChangePct()),
		})
	}
	return out
}

// ChartSample is the full intraday series for symbol so far.
func (s *Server) ChartSample(symbol string) stream.IntradaySample {
	q := s.market.Quote(symbol)
	return stream.IntradaySample{
		Times:     q.Times,
		Prices:    q.Prices,
		Price:     q.Price,
		Open:      q.Open,
		Change:    round2(q.Change()),
		ChangePct: round2(q.ChangePct()),
		High:      q.High,
		Low:       q.Low,
		Date:      s.market.Clock().Format(dateLayout),
		Timestamp: s.market.Now().Format(clockLayout),
	}
}

// chartSymbol validates the path symbol and writes a 404 for bad ones.
func chartSymbol(c *gin.Context) (string, bool) {
	sym := api.NormalizeSymbol(c.Param("symbol"))
	if !symbolPattern.MatchString(sym) {
		fail(c, http.StatusNotFound, "No data found for '%s'.", sym)
		return "", false
	}
	return sym, true
}

// ---------------------------------------------------------------------------
// SSE
// ---------------------------------------------------------------------------

// serveSSE sends one sample immediately and then one per interval until
// the client goes away.
func (s *Server) serveSSE(c *gin.Context, every time.Duration, sample func() interface{}) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	t := time.NewTicker(every)
	defer t.Stop()
	first := true
	c.Stream(func(w io.Writer) bool {
		if !first {
			select {
			case <-c.Request.Context().Done():
				return false
			case <-t.C:
			}
		}
		first = false
		b, err := json.Marshal(sample())
		if err != nil {
			s.log.Error("encoding sample", "error", err)
			return false
		}
		c.SSEvent("message", string(b))
		return true
	})
}

func (s *Server) sseTicker(c *gin.Context) {
	s.log.Info("ticker stream opened", "remote", c.ClientIP())
	s.serveSSE(c, s.opts.TickerEvery, func() interface{} { return s.TickerSample() })
	s.log.Info("ticker stream closed", "remote", c.ClientIP())
}

func (s *Server) sseChart(c *gin.Context) {
	sym, ok := chartSymbol(c)
	if !ok {
		return
	}
	s.log.Info("chart stream opened", "symbol", sym, "remote", c.ClientIP())
	s.serveSSE(c, s.opts.ChartEvery, func() interface{} { return s.ChartSample(sym) })
	s.log.Info("chart stream closed", "symbol", sym)
}

// ---------------------------------------------------------------------------
// WebSocket
// ---------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) serveWS(c *gin.Context, every time.Duration, sample func() interface{}) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Reading is only for noticing the peer's close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(sample()); err != nil {
			s.log.Debug("websocket write failed", "error", err)
			return
		}
		select {
		case <-gone:
			return
		case <-t.C:
		}
	}
}

func (s *Server) wsTicker(c *gin.Context) {
	s.serveWS(c, s.opts.TickerEvery, func() interface{} { return s.TickerSample() })
}

func (s *Server) wsChart(c *gin.Context) {
	sym, ok := chartSymbol(c)
	if !ok {
		return
	}
	s.serveWS(c, s.opts.ChartEvery, func() interface{} { return s.ChartSample(sym) })
}
