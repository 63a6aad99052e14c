package feedsim

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stockdash/internal/api"
	"stockdash/internal/news"
)

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z]{1,2})?$`)

func fmtNum(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func fail(c *gin.Context, status int, format string, args ...interface{}) {
	c.JSON(status, api.ErrorResponse{Error: fmt.Sprintf(format, args...)})
}

// bindSymbol decodes a body with a symbol field and validates it. It writes
// the error response itself and reports whether the handler should go on.
func bindSymbol(c *gin.Context, req interface{}, symbol *string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	*symbol = api.NormalizeSymbol(*symbol)
	if *symbol == "" {
		fail(c, http.StatusBadRequest, "Please provide a stock symbol")
		return false
	}
	if !symbolPattern.MatchString(*symbol) {
		fail(c, http.StatusNotFound, "No data found for '%s'. Please check the symbol.", *symbol)
		return false
	}
	return true
}

func rawFigure(fig gin.H) json.RawMessage {
	if fig == nil {
		return json.RawMessage("null")
	}
	b, err := json.Marshal(fig)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

func rawCharts(charts map[string]gin.H) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(charts))
	for k, v := range charts {
		out[k] = rawFigure(v)
	}
	return out
}

// compact formats large numbers the way the backend sends market cap and
// volume text.
func compact(v float64, dollar bool) string {
	p := ""
	if dollar {
		p = "$"
	}
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%s%.2fT", p, v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%s%.2fB", p, v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%s%.2fM", p, v/1e6)
	}
	return fmt.Sprintf("%s%.0f", p, v)
}

// dayRand is a generator stable for one symbol on one calendar day.
func dayRand(symbol string, t time.Time, salt string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(symbol + t.Format("2006-01-02") + salt))
	return rand.New(rand.NewSource(int64(h.Sum64() >> 1)))
}

var sectors = []struct{ sector, industry string }{
	{"Technology", "Consumer Electronics"},
	{"Technology", "Semiconductors"},
	{"Communication Services", "Internet Content & Information"},
	{"Consumer Cyclical", "Auto Manufacturers"},
	{"Financial Services", "Banks - Diversified"},
	{"Healthcare", "Drug Manufacturers - General"},
}

// ---------------------------------------------------------------------------
// /api/stock
// ---------------------------------------------------------------------------

func (s *Server) handleStock(c *gin.Context) {
	var req api.StockRequest
	if !bindSymbol(c, &req, &req.Symbol) {
		return
	}
	if req.Period == "" {
		req.Period = "1y"
	}
	if _, ok := periodDays[req.Period]; !ok {
		fail(c, http.StatusBadRequest, "Invalid period '%s'", req.Period)
		return
	}

	bars := s.market.History(req.Symbol, req.Period)
	year := s.market.History(req.Symbol, "1y")
	q := s.market.Quote(req.Symbol)
	r := dayRand(req.Symbol, s.market.Now(), "fundamentals")

	lo, hi := minMax(closes(year))
	start := bars[0].Close
	var vol float64
	for _, b := range bars {
		vol += b.Volume
	}
	sec := sectors[int(basePrice(req.Symbol))%len(sectors)]

	m := api.Metrics{
		Symbol:       req.Symbol,
		Name:         req.Symbol + " Holdings Inc.",
		CurrentPrice: q.Price,
		StartPrice:   start,
		ROI:          round2((q.Price/start - 1) * 100),
		High52w:      round2(math.Max(hi, q.High)),
		Low52w:       round2(math.Min(lo, q.Low)),
		AvgVolume:    api.Text(compact(vol/float64(len(bars)), false)),
		MarketCap:    api.Text(compact(q.Price*(2e8+r.Float64()*1.5e10), true)),
		PE:           api.Num(round2(8 + r.Float64()*50)),
		EPS:          api.Num(round2(q.Price / (8 + r.Float64()*50))),
		Dividend:     api.Text("N/A"),
		Sector:       sec.sector,
		Industry:     sec.industry,
		Beta:         api.Num(round2(0.5 + r.Float64()*1.5)),
		Period:       req.Period,
	}
	if r.Intn(2) == 0 {
		m.Dividend = api.Text(fmt.Sprintf("%.2f%%", r.Float64()*3))
	}

	s.log.Debug("stock analysis", "symbol", req.Symbol, "period", req.Period, "bars", len(bars))
	c.JSON(http.StatusOK, api.StockResponse{Metrics: m, Charts: rawCharts(stockCharts(req.Symbol, bars))})
}

// ---------------------------------------------------------------------------
// /api/news
// ---------------------------------------------------------------------------

var headlines = []struct {
	text  string
	score float64
}{
	{"%s beats quarterly earnings estimates as revenue climbs", 0.62},
	{"Analysts upgrade %s on strong product demand", 0.57},
	{"%s shares slide after guidance disappoints investors", -0.48},
	{"Regulators open inquiry into %s business practices", -0.36},
	{"%s announces annual shareholder meeting date", 0.0},
	{"%s expands buyback program by $5 billion", 0.44},
	{"Supply chain concerns weigh on %s outlook", -0.29},
	{"%s to present at industry conference next week", 0.02},
	{"%s hits record high on upbeat market sentiment", 0.66},
	{"Short sellers increase bets against %s", -0.41},
}

var publishers = []string{"Reuters", "Bloomberg", "MarketWatch", "Yahoo Finance", "Barron's"}

const newsCount = 8

func (s *Server) handleNews(c *gin.Context) {
	var req api.SymbolRequest
	if !bindSymbol(c, &req, &req.Symbol) {
		return
	}

	var items []api.NewsItem
	if s.opts.News != nil {
		hs, err := s.opts.News.Headlines(c.Request.Context(), req.Symbol, newsCount)
		if err != nil {
			s.log.Warn("headline source failed, using simulated news", "symbol", req.Symbol, "error", err)
		}
		for _, h := range hs {
			score := news.Score(h.Title)
			items = append(items, api.NewsItem{
				Title:     h.Title,
				Publisher: h.Publisher,
				Link:      h.Link,
				Date:      h.Time.Format(dateLayout),
				Sentiment: news.Classify(score),
				Score:     score,
			})
		}
	}
	if len(items) == 0 {
		items = s.simulatedNews(req.Symbol)
	}

	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Sentiment
	}
	sum := news.Summarize(labels)
	resp := api.NewsResponse{
		News: items,
		Summary: api.SentimentSummary{
			Positive:     sum.Positive,
			Negative:     sum.Negative,
			Neutral:      sum.Neutral,
			Overall:      sum.Overall,
			OverallScore: sum.OverallScore,
		},
		SentimentChart: rawFigure(pie(req.Symbol+" News Sentiment",
			[]string{news.Positive, news.Negative, news.Neutral},
			[]float64{float64(sum.Positive), float64(sum.Negative), float64(sum.Neutral)},
			[]string{"#00c853", "#ff1744", "#f59e0b"})),
	}
	c.JSON(http.StatusOK, resp)
}

// simulatedNews picks a stable set of canned headlines per symbol and day.
func (s *Server) simulatedNews(symbol string) []api.NewsItem {
	now := s.market.Now()
	r := dayRand(symbol, now, "news")
	items := make([]api.NewsItem, 0, newsCount)
	for i, idx := range r.Perm(len(headlines))[:newsCount] {
		h := headlines[idx]
		score := math.Round((h.score+(r.Float64()-0.5)*0.1)*1000) / 1000
		items = append(items, api.NewsItem{
			Title:     fmt.Sprintf(h.text, symbol),
			Publisher: publishers[r.Intn(len(publishers))],
			Link:      fmt.Sprintf("https://news.example.com/%s/%d", strings.ToLower(symbol), i),
			Date:      now.AddDate(0, 0, -i).Format(dateLayout),
			Sentiment: news.Classify(score),
			Score:     score,
		})
	}
	return items
}

// ---------------------------------------------------------------------------
// /api/strategy
// ---------------------------------------------------------------------------

func (s *Server) handleStrategy(c *gin.Context) {
	var req api.SymbolRequest
	if !bindSymbol(c, &req, &req.Symbol) {
		return
	}
	bars := s.market.History(req.Symbol, "1y")
	cl := closes(bars)
	price := last(cl)

	curRSI := round2(last(rsi(cl, 14)))
	rsiSignal := "Neutral Range 🟡"
	switch {
	case curRSI > 70:
		rsiSignal = "Overbought - Consider Selling 🔴"
	case curRSI < 30:
		rsiSignal = "Oversold - Consider Buying 🟢"
	}

	ml, sl, hl := macd(cl)
	macdVal, sigVal := math.Round(last(ml)*1e4)/1e4, math.Round(last(sl)*1e4)/1e4
	macdSignal := "Bearish Crossover - Sell Signal 🔴"
	if macdVal > sigVal {
		macdSignal = "Bullish Crossover - Buy Signal 🟢"
	}

	up, mid, lo := bollinger(cl, 20, 2)
	bu, bl := round2(last(up)), round2(last(lo))
	bbSignal := "Within Normal Range 🟡"
	switch {
	case price >= bu:
		bbSignal = "Near Upper Band - Potentially Overbought 🔴"
	case price <= bl:
		bbSignal = "Near Lower Band - Potentially Oversold 🟢"
	}

	sup, res := minMax(cl[len(cl)-60:])

	buy, sell := 0, 0
	if curRSI < 30 {
		buy++
	} else if curRSI > 70 {
		sell++
	}
	if macdVal > sigVal {
		buy++
	} else {
		sell++
	}
	if price <= bl {
		buy++
	} else if price >= bu {
		sell++
	}
	cross := "Golden Cross (MA50 > MA200) - Bullish 🟢"
	if last(sma(cl, 50)) > last(sma(cl, 200)) {
		buy++
	} else {
		cross = "Death Cross (MA50 < MA200) - Bearish 🔴"
		sell++
	}
	overall := "HOLD - Signals are mixed 🟡"
	switch {
	case buy > sell:
		overall = fmt.Sprintf("BUY - %d of %d indicators bullish 🟢", buy, buy+sell)
	case sell > buy:
		overall = fmt.Sprintf("SELL - %d of %d indicators bearish 🔴", sell, buy+sell)
	}

	charts := stockCharts(req.Symbol, bars)
	resp := api.StrategyResponse{
		Symbol: req.Symbol,
		Price:  price,
		Strategies: api.Strategies{
			RSI: api.RSISignal{Value: api.Num(curRSI), Signal: rsiSignal},
			MACD: api.MACDSignal{
				MACD:           api.Num(macdVal),
				Signal:         api.Num(sigVal),
				Histogram:      api.Num(math.Round(last(hl)*1e4) / 1e4),
				Interpretation: macdSignal,
			},
			Bollinger:   api.BollingerSignal{Upper: api.Num(bu), Lower: api.Num(bl), SMA: api.Num(round2(last(mid))), Signal: bbSignal},
			Support:     api.Num(round2(sup)),
			Resistance:  api.Num(round2(res)),
			MACrossover: cross,
			Overall:     overall,
		},
		Charts: rawCharts(map[string]gin.H{
			"rsi":       charts["rsi"],
			"macd":      charts["macd"],
			"bollinger": charts["bollinger"],
		}),
	}
	c.JSON(http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// /api/options
// ---------------------------------------------------------------------------

func (s *Server) handleOptions(c *gin.Context) {
	var req api.SymbolRequest
	if !bindSymbol(c, &req, &req.Symbol) {
		return
	}
	q := s.market.Quote(req.Symbol)
	now := s.market.Now()
	r := dayRand(req.Symbol, now, "options")

	exp := now.AddDate(0, 0, 30)
	for exp.Weekday() != time.Friday {
		exp = exp.AddDate(0, 0, 1)
	}
	expiration := exp.Format("2006-01-02")

	callVol := 20000 + r.Intn(200000)
	putVol := 15000 + r.Intn(200000)
	callOI := 50000 + r.Intn(500000)
	putOI := 40000 + r.Intn(500000)
	ratioVol := math.Round(float64(putVol)/float64(callVol)*1000) / 1000
	ratioOI := math.Round(float64(putOI)/float64(callOI)*1000) / 1000
	pcSignal := "Neutral Put/Call Ratio 🟡"
	switch {
	case ratioOI > 1.2:
		pcSignal = "High Put/Call - Bearish Sentiment 🔴"
	case ratioOI < 0.7:
		pcSignal = "Low Put/Call - Bullish Sentiment 🟢"
	}

	callIV := round2(15 + r.Float64()*50)
	putIV := round2(15 + r.Float64()*50)
	avgIV := round2((callIV + putIV) / 2)
	ivSignal := "Moderate IV 🟡"
	switch {
	case avgIV > 50:
		ivSignal = "High IV - Premiums are expensive 🔴"
	case avgIV < 25:
		ivSignal = "Low IV - Premiums are cheap 🟢"
	}

	step := strikeStep(q.Price)
	atm := math.Round(q.Price/step) * step
	ic := api.IronCondor{
		SellPut:  api.Num(round2(atm - 2*step)),
		BuyPut:   api.Num(round2(atm - 4*step)),
		SellCall: api.Num(round2(atm + 2*step)),
		BuyCall:  api.Num(round2(atm + 4*step)),
	}
	credit := round2(step * (0.4 + r.Float64()*0.5))
	ic.NetCredit = api.Num(credit)
	ic.MaxLoss = api.Num(round2(2*step - credit))
	ic.Signal = fmt.Sprintf("Net Credit $%s - Profitable if price stays $%s-$%s 🟢", fmtNum(credit), ic.SellPut.Raw, ic.SellCall.Raw)

	putCall := figure(fmt.Sprintf("%s Put/Call Open Interest - Exp: %s", req.Symbol, expiration), "", "Open Interest",
		bars("Calls", []string{"Calls"}, []float64{float64(callOI)}, []string{"#00c853"}),
		bars("Puts", []string{"Puts"}, []float64{float64(putOI)}, []string{"#ff1744"}),
	)
	c.JSON(http.StatusOK, api.OptionsResponse{
		Symbol:     req.Symbol,
		Price:      q.Price,
		Expiration: expiration,
		PutCall: api.PutCall{
			CallVolume: api.Num(float64(callVol)), PutVolume: api.Num(float64(putVol)),
			CallOI: api.Num(float64(callOI)), PutOI: api.Num(float64(putOI)),
			RatioVolume: api.Num(ratioVol), RatioOI: api.Num(ratioOI),
			Signal: pcSignal,
		},
		IV:         api.ImpliedVol{CallIV: api.Num(callIV), PutIV: api.Num(putIV), AvgIV: api.Num(avgIV), Signal: ivSignal},
		IronCondor: ic,
		Charts: rawCharts(map[string]gin.H{
			"putcall":    putCall,
			"ironCondor": ironCondorFigure(req.Symbol, expiration, q.Price, atm, step, credit),
		}),
	})
}

func strikeStep(price float64) float64 {
	switch {
	case price < 50:
		return 1
	case price < 200:
		return 2.5
	}
	return 5
}

// ironCondorFigure plots the position's payoff at expiration.
func ironCondorFigure(symbol, expiration string, price, atm, step, credit float64) gin.H {
	var x []string
	var y []float64
	for k := atm - 6*step; k <= atm+6*step; k += step / 2 {
		pnl := credit
		switch {
		case k < atm-2*step:
			pnl -= math.Min(atm-2*step-k, 2*step)
		case k > atm+2*step:
			pnl -= math.Min(k-(atm+2*step), 2*step)
		}
		x = append(x, fmtNum(round2(k)))
		y = append(y, pnl*100)
	}
	title := fmt.Sprintf("%s Iron Condor Payoff - Exp: %s | Credit: $%s", symbol, expiration, fmtNum(credit))
	fig := figure(title, "Price at Expiration", "Profit / Loss ($)", line("P/L", x, y, "#38bdf8"))
	return withHLine(fig, 0, "#64748b", "dash", "Breakeven")
}

// ---------------------------------------------------------------------------
// /api/livechart
// ---------------------------------------------------------------------------

func (s *Server) handleLiveChart(c *gin.Context) {
	var req api.SymbolRequest
	if !bindSymbol(c, &req, &req.Symbol) {
		return
	}
	q := s.market.Quote(req.Symbol)
	now := s.market.Now()
	date := s.market.Clock().Format(dateLayout)
	c.JSON(http.StatusOK, api.LiveChartResponse{
		Chart:     rawFigure(intradayFigure(q, date)),
		Price:     q.Price,
		Open:      q.Open,
		Change:    round2(q.Change()),
		ChangePct: round2(q.ChangePct()),
		High:      q.High,
		Low:       q.Low,
		Date:      date,
		Timestamp: now.Format(clockLayout),
	})
}

// ---------------------------------------------------------------------------
// /api/chat
// ---------------------------------------------------------------------------

var chatSymbol = regexp.MustCompile(`\b([A-Z]{1,5})\b`)

var glossary = []struct {
	keys  []string
	reply string
}{
	{[]string{"what is roi", "roi mean"}, "**ROI (Return on Investment)** is the gain or loss relative to what you paid.\n\n`ROI = (Current - Initial) / Initial × 100`"},
	{[]string{"what is pe", "pe ratio", "p/e ratio"}, "**P/E Ratio** is price divided by earnings per share.\n\n• **High (>25)**: growth priced in\n• **Low (<15)**: value or slow growth"},
	{[]string{"what is eps", "eps mean"}, "**EPS (Earnings Per Share)** is net profit divided by shares outstanding."},
	{[]string{"what is beta", "beta mean"}, "**Beta** measures volatility against the market.\n\n• **>1**: swings more than the market\n• **<1**: swings less"},
	{[]string{"market cap"}, "**Market Cap** is share price times shares outstanding."},
	{[]string{"help"}, "**Commands**\n\nType a symbol and press *Enter* to analyze it. Press `n` for news, `s` for strategy, `o` for options and `l` for the live chart."},
}

func chatReply(message string) string {
	msg := strings.ToLower(message)
	for _, w := range strings.Fields(msg) {
		if w == "hi" || w == "hello" || w == "hey" {
			return "👋 Hello! Ask me about a stock symbol or a term like *ROI* or *P/E*.\n\nType **help** for commands."
		}
	}
	for _, g := range glossary {
		for _, k := range g.keys {
			if strings.Contains(msg, k) {
				return g.reply
			}
		}
	}
	if m := chatSymbol.FindStringSubmatch(message); m != nil {
		sym := m[1]
		return fmt.Sprintf("🔍 Looking for **%s**?\n\nEnter **%s** in the symbol box for charts, ROI and indicators, or press `n` for its news sentiment.", sym, sym)
	}
	return "🤔 I didn't quite get that. Try a symbol like **AAPL** or ask *What is ROI?*"
}

func (s *Server) handleChat(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusOK, api.ChatResponse{Reply: "Please type a message."})
		return
	}
	c.JSON(http.StatusOK, api.ChatResponse{Reply: chatReply(req.Message)})
}
