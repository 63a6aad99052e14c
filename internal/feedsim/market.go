package feedsim

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

// Layouts of the time strings on the wire.
const (
	minuteLayout = "2006-01-02 15:04"
	dateLayout   = "Jan 02, 2006"
	clockLayout  = "15:04:05"
)

// periodDays maps an analysis period to trading days of history.
var periodDays = map[string]int{
	"1mo": 21,
	"3mo": 63,
	"6mo": 126,
	"1y":  252,
	"5y":  1260,
	"max": 2520,
}

// Bar is one daily OHLCV bar.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Quote is the simulated intraday state of one symbol.
type Quote struct {
	Symbol string
	Open   float64
	Price  float64
	High   float64
	Low    float64
	Times  []string
	Prices []float64
}

// Change is the absolute move since the open.
func (q *Quote) Change() float64 { return q.Price - q.Open }

// ChangePct is the move since the open in percent.
func (q *Quote) ChangePct() float64 {
	if q.Open == 0 {
		return 0
	}
	return (q.Price - q.Open) / q.Open * 100
}

func (q *Quote) clone() *Quote {
	c := *q
	c.Times = append([]string(nil), q.Times...)
	c.Prices = append([]float64(nil), q.Prices...)
	return &c
}

// Market is a random-walk price source. Intraday series advance one minute
// per Step, starting from 09:30 on the day the market was created.
type Market struct {
	mu      sync.Mutex
	rng     *rand.Rand
	symbols []string
	quotes  map[string]*Quote
	clock   time.Time
	now     func() time.Time
}

// NewMarket creates a market for symbols. Equal seeds give equal walks.
func NewMarket(symbols []string, seed int64, now func() time.Time) *Market {
	if now == nil {
		now = time.Now
	}
	t := now()
	m := &Market{
		rng:    rand.New(rand.NewSource(seed)),
		quotes: make(map[string]*Quote),
		clock:  time.Date(t.Year(), t.Month(), t.Day(), 9, 30, 0, 0, t.Location()),
		now:    now,
	}
	for _, s := range symbols {
		m.ensure(strings.ToUpper(s))
	}
	return m
}

// basePrice derives a stable starting price from the symbol.
func basePrice(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return 20 + float64(h.Sum32()%48000)/100
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64() >> 1)
}

// ensure returns the quote for symbol, creating it on first use. The
// caller holds mu.
func (m *Market) ensure(symbol string) *Quote {
	if q, ok := m.quotes[symbol]; ok {
		return q
	}
	open := basePrice(symbol)
	q := &Quote{
		Symbol: symbol,
		Open:   open,
		Price:  open,
		High:   open,
		Low:    open,
		Times:  []string{m.clock.Format(minuteLayout)},
		Prices: []float64{open},
	}
	m.quotes[symbol] = q
	m.symbols = append(m.symbols, symbol)
	return q
}

// Step advances every known symbol by one minute of random walk.
func (m *Market) Step() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	stamp := m.clock.Format(minuteLayout)
	for _, sym := range m.symbols {
		q := m.quotes[sym]
		move := m.rng.NormFloat64() * 0.0015 * q.Price
		q.Price = math.Max(0.01, round2(q.Price+move))
		q.High = math.Max(q.High, q.Price)
		q.Low = math.Min(q.Low, q.Price)
		q.Times = append(q.Times, stamp)
		q.Prices = append(q.Prices, q.Price)
	}
}

// Quote returns a copy of symbol's intraday state.
func (m *Market) Quote(symbol string) *Quote {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensure(strings.ToUpper(symbol)).clone()
}

// Ticker returns copies of the configured symbols' quotes, in ribbon order.
func (m *Market) Ticker(limit int) []*Quote {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.symbols)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Quote, 0, n)
	for _, sym := range m.symbols[:n] {
		out = append(out, m.quotes[sym].clone())
	}
	return out
}

// Symbols returns every symbol the market has seen, sorted.
func (m *Market) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.symbols...)
	sort.Strings(out)
	return out
}

// Clock returns the simulated time of the latest minute.
func (m *Market) Clock() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock
}

// Now returns the wall clock the market stamps samples with.
func (m *Market) Now() time.Time { return m.now() }

// History returns period's daily bars for symbol ending today. The series
// is a pure function of symbol and period.
func (m *Market) History(symbol, period string) []Bar {
	days, ok := periodDays[period]
	if !ok {
		days = periodDays["1y"]
	}
	rng := rand.New(rand.NewSource(symbolSeed(symbol)))
	price := basePrice(symbol) * (0.6 + rng.Float64()*0.5)
	end := m.now()
	bars := make([]Bar, 0, days)
	d := end.AddDate(0, 0, -days*7/5)
	for len(bars) < days {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		open := price
		cl := math.Max(0.5, open*(1+rng.NormFloat64()*0.018))
		hi := math.Max(open, cl) * (1 + rng.Float64()*0.01)
		lo := math.Min(open, cl) * (1 - rng.Float64()*0.01)
		bars = append(bars, Bar{
			Date:   d,
			Open:   round2(open),
			High:   round2(hi),
			Low:    round2(lo),
			Close:  round2(cl),
			Volume: math.Round(5e6 + rng.Float64()*4.5e7),
		})
		price = cl
	}
	return bars
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
