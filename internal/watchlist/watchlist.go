// Package watchlist keeps the analyzed symbols the user flags in an Alpaca
// watchlist, created on first use.
package watchlist

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// API is the part of the Alpaca trading client the watchlist uses.
// *alpacaapi.Client implements it.
type API interface {
	GetWatchlists() ([]alpacaapi.Watchlist, error)
	GetWatchlist(watchlistID string) (*alpacaapi.Watchlist, error)
	CreateWatchlist(req alpacaapi.CreateWatchlistRequest) (*alpacaapi.Watchlist, error)
	AddSymbolToWatchlist(watchlistID string, req alpacaapi.AddSymbolToWatchlistRequest) (*alpacaapi.Watchlist, error)
	RemoveSymbolFromWatchlist(watchlistID string, req alpacaapi.RemoveSymbolFromWatchlistRequest) error
}

// NewAlpacaClient returns a trading client for the given credentials. An
// empty baseURL uses the SDK default.
func NewAlpacaClient(apiKey, apiSecret, baseURL string) *alpacaapi.Client {
	return alpacaapi.NewClient(alpacaapi.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
}

// Loaded is the result of Load.
type Loaded struct {
	ID      string
	Symbols map[string]bool
	Err     error
}

// Toggled is the result of a remote add or remove.
type Toggled struct {
	Symbol string
	Added  bool
	Err    error
}

// Watchlist mirrors one named Alpaca watchlist. Only the update loop calls
// Apply* and Toggle; Load and the Toggle remote call are safe to run in a
// command goroutine.
type Watchlist struct {
	api  API
	name string
	log  *slog.Logger

	id      string
	symbols map[string]bool
}

// New returns a watchlist named name. api may be nil, in which case the
// watchlist is disabled.
func New(api API, name string, log *slog.Logger) *Watchlist {
	if log == nil {
		log = slog.Default()
	}
	return &Watchlist{api: api, name: name, log: log, symbols: make(map[string]bool)}
}

// Enabled reports whether the watchlist is usable: credentials are present
// and the list has been loaded.
func (w *Watchlist) Enabled() bool { return w.api != nil && w.id != "" }

// Configured reports whether credentials were supplied.
func (w *Watchlist) Configured() bool { return w.api != nil }

// Load finds the named watchlist, creating it if it does not exist, and
// returns its symbols. It does not modify w.
func (w *Watchlist) Load() Loaded {
	if w.api == nil {
		return Loaded{Err: fmt.Errorf("watchlist %q: no alpaca credentials", w.name)}
	}
	lists, err := w.api.GetWatchlists()
	if err != nil {
		return Loaded{Err: fmt.Errorf("listing watchlists: %w", err)}
	}
	for _, l := range lists {
		if l.Name != w.name {
			continue
		}
		// The listing omits assets.
		full, err := w.api.GetWatchlist(l.ID)
		if err != nil {
			return Loaded{Err: fmt.Errorf("getting watchlist %s: %w", l.ID, err)}
		}
		syms := make(map[string]bool, len(full.Assets))
		for _, a := range full.Assets {
			syms[a.Symbol] = true
		}
		return Loaded{ID: l.ID, Symbols: syms}
	}
	created, err := w.api.CreateWatchlist(alpacaapi.CreateWatchlistRequest{Name: w.name})
	if err != nil {
		return Loaded{Err: fmt.Errorf("creating watchlist %q: %w", w.name, err)}
	}
	return Loaded{ID: created.ID, Symbols: make(map[string]bool)}
}

// ApplyLoaded installs a Load result.
func (w *Watchlist) ApplyLoaded(l Loaded) error {
	if l.Err != nil {
		w.log.Warn("loading watchlist", "error", l.Err)
		return l.Err
	}
	w.id = l.ID
	w.symbols = l.Symbols
	w.log.Info("watchlist loaded", "id", l.ID, "symbols", len(l.Symbols))
	return nil
}

// Contains reports whether symbol is on the list.
func (w *Watchlist) Contains(symbol string) bool {
	return w.symbols[strings.ToUpper(symbol)]
}

// Symbols returns the listed symbols in order.
func (w *Watchlist) Symbols() []string {
	out := make([]string, 0, len(w.symbols))
	for s := range w.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Toggle flips symbol's membership locally and returns the remote call that
// makes it stick. The call's result goes to ApplyToggled, which reverts the
// local change on failure. It returns nil when the list is not loaded.
func (w *Watchlist) Toggle(symbol string) func() Toggled {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !w.Enabled() || symbol == "" {
		return nil
	}
	api, id := w.api, w.id
	if w.symbols[symbol] {
		delete(w.symbols, symbol)
		return func() Toggled {
			err := api.RemoveSymbolFromWatchlist(id, alpacaapi.RemoveSymbolFromWatchlistRequest{Symbol: symbol})
			return Toggled{Symbol: symbol, Added: false, Err: err}
		}
	}
	w.symbols[symbol] = true
	return func() Toggled {
		_, err := api.AddSymbolToWatchlist(id, alpacaapi.AddSymbolToWatchlistRequest{Symbol: symbol})
		return Toggled{Symbol: symbol, Added: true, Err: err}
	}
}

// ApplyToggled settles a toggle. A failed call reverts the optimistic
// change.
func (w *Watchlist) ApplyToggled(t Toggled) error {
	if t.Err != nil {
		w.log.Warn("watchlist toggle failed", "symbol", t.Symbol, "error", t.Err)
		if t.Added {
			delete(w.symbols, t.Symbol)
		} else {
			w.symbols[t.Symbol] = true
		}
		return t.Err
	}
	w.log.Info("watchlist toggled", "symbol", t.Symbol, "added", t.Added)
	return nil
}
