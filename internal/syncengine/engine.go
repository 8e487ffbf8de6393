package syncengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pricesync/internal/clock"
	"pricesync/internal/market"
	"pricesync/internal/memorystore"

	"go.uber.org/zap"
)

var (
	ErrUnknownSymbol   = errors.New("unknown symbol")
	ErrUnknownInterval = errors.New("unknown interval")
	ErrStopped         = errors.New("engine stopped")
)

const (
	DefaultTickPeriod   = 4 * time.Second
	DefaultHistoryLimit = 200
)

// Feed is the remote price service.
type Feed interface {
	Latest(ctx context.Context, symbol market.Symbol) (market.PriceSnapshot, error)
	History(ctx context.Context, symbol market.Symbol, limit int) (market.HistorySeries, error)
}

// Recorder receives every snapshot written to the latest-price cache.
type Recorder interface {
	RecordSnapshot(ctx context.Context, snap market.PriceSnapshot) error
}

type Options struct {
	Symbols         []market.Symbol
	Intervals       []market.Interval // defaults to market.DefaultIntervals
	InitialSymbol   market.Symbol     // defaults to the first symbol
	InitialInterval market.Interval
	TickPeriod      time.Duration
	HistoryLimit    int
	Recorder        Recorder
}

type command struct {
	symbol   *market.Symbol
	interval *market.Interval
}

type fetchResult struct {
	ticket  ticket
	set     *inflightSet
	latest  market.PriceSnapshot
	history market.HistorySeries
	err     error
}

// Engine polls the feed and maintains the caches and the derived View.
// All state changes happen on the goroutine running Run.
type Engine struct {
	feed      Feed
	clock     clock.Clock
	symbols   *memorystore.MemorySymbolStore
	intervals map[market.Interval]struct{}
	period    time.Duration
	limit     int
	recorder  Recorder
	logger    *zap.Logger

	state    *State
	memo     viewMemo
	inflight map[market.Symbol]*inflightSet

	commands chan command
	results  chan fetchResult
	done     chan struct{}
	running  atomic.Bool

	view atomic.Pointer[View]

	// outstanding recorder writes, joined before Run returns
	recording sync.WaitGroup

	subMu sync.Mutex
	subs  map[chan View]struct{}
}

// inflightSet tracks the cancel funcs of outstanding fetches for one symbol.
type inflightSet struct {
	ctx    context.Context
	cancel context.CancelFunc
	count  int
}

func New(feed Feed, clk clock.Clock, opts Options, logger *zap.Logger) (*Engine, error) {
	if feed == nil {
		return nil, errors.New("feed is required")
	}
	if clk == nil {
		return nil, errors.New("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	symbols := memorystore.NewSymbolStore(opts.Symbols...)
	if symbols.Len() == 0 {
		return nil, errors.New("at least one symbol is required")
	}

	if len(opts.Intervals) == 0 {
		opts.Intervals = market.DefaultIntervals
	}
	intervals := make(map[market.Interval]struct{}, len(opts.Intervals))
	for _, iv := range opts.Intervals {
		intervals[iv] = struct{}{}
	}

	if opts.InitialSymbol == "" {
		opts.InitialSymbol = symbols.GetAll()[0]
	}
	if !symbols.Contains(opts.InitialSymbol) {
		return nil, fmt.Errorf("initial symbol %q: %w", opts.InitialSymbol, ErrUnknownSymbol)
	}
	if _, ok := intervals[opts.InitialInterval]; !ok {
		return nil, fmt.Errorf("initial interval %q: %w", opts.InitialInterval, ErrUnknownInterval)
	}

	if opts.TickPeriod <= 0 {
		opts.TickPeriod = DefaultTickPeriod
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}

	e := &Engine{
		feed:      feed,
		clock:     clk,
		symbols:   symbols,
		intervals: intervals,
		period:    opts.TickPeriod,
		limit:     opts.HistoryLimit,
		recorder:  opts.Recorder,
		logger:    logger.With(zap.String("component", "syncengine")),
		state:     newState(opts.InitialSymbol, opts.InitialInterval, clk.Now()),
		inflight:  make(map[market.Symbol]*inflightSet),
		commands:  make(chan command),
		results:   make(chan fetchResult, 16),
		done:      make(chan struct{}),
		subs:      make(map[chan View]struct{}),
	}
	e.publish()
	return e, nil
}

// Symbols returns the recognized symbols in configured order.
func (e *Engine) Symbols() []market.Symbol { return e.symbols.GetAll() }

// Stats is a point-in-time summary of the caches.
type Stats struct {
	CachedPrices   int // symbols with a latest snapshot
	HistoryEntries int // snapshots held across all history series
}

// Stats reads the caches directly; they are safe for concurrent use.
func (e *Engine) Stats() Stats {
	return Stats{
		CachedPrices:   e.state.latest.Len(),
		HistoryEntries: e.state.history.CountAll(),
	}
}

// Run starts the clock, fetches price and history for the initial symbol and
// then serves ticks, selection changes and fetch results until ctx is done.
// Pending recorder writes finish before Run returns. Run may be called once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer close(e.done)
	defer e.recording.Wait()

	e.clock.Start(e.period)
	defer e.clock.Stop()
	defer e.cancelAll()

	e.logger.Info("sync engine started",
		zap.String("symbol", e.state.symbol.String()),
		zap.Duration("tick_period", e.period),
		zap.Int("history_limit", e.limit))

	e.fetchLatest(ctx, e.state.symbol)
	e.fetchHistory(ctx, e.state.symbol, e.limit)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("sync engine stopped")
			return nil
		case at := <-e.clock.C():
			e.onTick(ctx, at)
		case cmd := <-e.commands:
			e.handle(ctx, cmd)
		case res := <-e.results:
			e.apply(res)
		}
	}
}

// SetSymbol selects symbol and triggers an immediate price and history fetch.
func (e *Engine) SetSymbol(ctx context.Context, symbol market.Symbol) error {
	if !e.symbols.Contains(symbol) {
		return fmt.Errorf("%q: %w", symbol, ErrUnknownSymbol)
	}
	return e.send(ctx, command{symbol: &symbol})
}

// SetInterval selects the display window. It never triggers a fetch.
func (e *Engine) SetInterval(ctx context.Context, interval market.Interval) error {
	if _, ok := e.intervals[interval]; !ok {
		return fmt.Errorf("%q: %w", interval, ErrUnknownInterval)
	}
	return e.send(ctx, command{interval: &interval})
}

func (e *Engine) send(ctx context.Context, cmd command) error {
	select {
	case e.commands <- cmd:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns the most recently derived view.
func (e *Engine) View() View {
	return *e.view.Load()
}

// Subscribe returns a channel that receives the view after every change.
// Only the newest undelivered view is kept. The returned func unsubscribes.
func (e *Engine) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)

	e.subMu.Lock()
	e.subs[ch] = struct{}{}
	e.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, ch)
			e.subMu.Unlock()
		})
	}
}

func (e *Engine) onTick(ctx context.Context, at time.Time) {
	e.logger.Debug("tick", zap.Time("at", at))
	e.fetchLatest(ctx, e.state.symbol)
}

func (e *Engine) handle(ctx context.Context, cmd command) {
	switch {
	case cmd.symbol != nil:
		prev := e.state.symbol
		if !e.state.setSymbol(*cmd.symbol) {
			return
		}
		e.cancelSymbol(prev)
		e.logger.Info("symbol selected", zap.String("symbol", cmd.symbol.String()), zap.String("previous", prev.String()))
		e.publish()
		e.fetchLatest(ctx, *cmd.symbol)
		e.fetchHistory(ctx, *cmd.symbol, e.limit)
	case cmd.interval != nil:
		if e.state.setInterval(*cmd.interval) {
			e.logger.Debug("interval selected", zap.Stringer("interval", *cmd.interval))
			e.publish()
		}
	}
}

func (e *Engine) fetchLatest(ctx context.Context, symbol market.Symbol) {
	t := e.state.issue(kindLatest, symbol, e.clock.Now())
	e.dispatch(ctx, t, func(fctx context.Context, res *fetchResult) {
		res.latest, res.err = e.feed.Latest(fctx, symbol)
	})
}

func (e *Engine) fetchHistory(ctx context.Context, symbol market.Symbol, limit int) {
	t := e.state.issue(kindHistory, symbol, e.clock.Now())
	e.dispatch(ctx, t, func(fctx context.Context, res *fetchResult) {
		res.history, res.err = e.feed.History(fctx, symbol, limit)
	})
}

// dispatch runs call on its own goroutine and posts the result back to the
// engine loop. The call's context is cancelled when its symbol is deselected.
func (e *Engine) dispatch(ctx context.Context, t ticket, call func(context.Context, *fetchResult)) {
	set, ok := e.inflight[t.symbol]
	if !ok {
		fctx, cancel := context.WithCancel(ctx)
		set = &inflightSet{ctx: fctx, cancel: cancel}
		e.inflight[t.symbol] = set
	}
	set.count++

	go func() {
		res := fetchResult{ticket: t, set: set}
		call(set.ctx, &res)
		select {
		case e.results <- res:
		case <-ctx.Done():
		}
	}()
}

func (e *Engine) apply(res fetchResult) {
	t := res.ticket
	e.release(t.symbol, res.set)

	log := e.logger.With(
		zap.String("symbol", t.symbol.String()),
		zap.Stringer("kind", t.kind),
		zap.Uint64("seq", t.seq),
	)

	if res.err != nil {
		if errors.Is(res.err, context.Canceled) {
			log.Debug("fetch cancelled", zap.Error(res.err))
			return
		}
		log.Warn("fetch failed, keeping cached data", zap.Error(res.err))
		return
	}

	var applied bool
	switch t.kind {
	case kindLatest:
		applied = e.state.applyLatest(t, res.latest)
		if applied {
			e.record(res.latest)
		}
	case kindHistory:
		applied = e.state.applyHistory(t, res.history)
		if applied {
			log.Debug("history replaced", zap.Int("count", len(res.history)))
		}
	}

	if !applied {
		log.Debug("stale fetch result discarded")
		return
	}
	e.publish()
}

func (e *Engine) record(snap market.PriceSnapshot) {
	if e.recorder == nil {
		return
	}
	e.recording.Add(1)
	go func() {
		defer e.recording.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.recorder.RecordSnapshot(ctx, snap); err != nil {
			e.logger.Warn("failed to record snapshot",
				zap.String("symbol", snap.Symbol.String()), zap.Error(err))
		}
	}()
}

// release drops one outstanding fetch from set and frees its context
// once none are left.
func (e *Engine) release(symbol market.Symbol, set *inflightSet) {
	set.count--
	if set.count > 0 {
		return
	}
	set.cancel()
	if e.inflight[symbol] == set {
		delete(e.inflight, symbol)
	}
}

// cancelSymbol aborts outstanding fetches for symbol. Their results still
// arrive and are discarded by apply. Later fetches for the symbol get a
// fresh context.
func (e *Engine) cancelSymbol(symbol market.Symbol) {
	if set, ok := e.inflight[symbol]; ok {
		set.cancel()
		delete(e.inflight, symbol)
	}
}

func (e *Engine) cancelAll() {
	for _, set := range e.inflight {
		set.cancel()
	}
}

func (e *Engine) publish() {
	v := buildView(e.state, &e.memo)
	e.view.Store(&v)

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for ch := range e.subs {
		// replace an undelivered view with the newer one
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
