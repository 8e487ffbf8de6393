package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pricesync/config"
	"pricesync/internal/clock"
	"pricesync/internal/market"
	"pricesync/internal/syncengine"
	"pricesync/internal/viewstream"
	"pricesync/pkg/pricefeed"
	"pricesync/pkg/storage/postgres"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const statusPeriod = time.Minute

// snapshotPruner removes recorded snapshots older than a cutoff.
type snapshotPruner interface {
	DeleteOldSnapshots(ctx context.Context, before time.Time) (int64, error)
}

// Tracker wires the feed client, engine, view stream and optional recorder.
type Tracker struct {
	cfg    *config.Config
	logger *zap.Logger

	engine *syncengine.Engine
	hub    *viewstream.Hub
	db     *postgres.PostgresClient
	pruner snapshotPruner
}

// New builds every component from cfg. Nothing runs until Run.
func New(cfg *config.Config, logger *zap.Logger) (*Tracker, error) {
	symbols := make([]market.Symbol, 0, len(cfg.Sync.Symbols))
	for _, s := range cfg.Sync.Symbols {
		symbols = append(symbols, market.Symbol(s))
	}

	intervals, err := market.ParseIntervals(cfg.Sync.Intervals)
	if err != nil {
		return nil, fmt.Errorf("sync.intervals: %w", err)
	}

	initial := market.All
	if cfg.Sync.InitialInterval != "" {
		if initial, err = market.ParseInterval(cfg.Sync.InitialInterval); err != nil {
			return nil, fmt.Errorf("sync.initial_interval: %w", err)
		}
	}

	t := &Tracker{cfg: cfg, logger: logger}

	opts := syncengine.Options{
		Symbols:         symbols,
		Intervals:       intervals,
		InitialSymbol:   market.Symbol(cfg.Sync.InitialSymbol),
		InitialInterval: initial,
		TickPeriod:      cfg.Sync.TickPeriod,
		HistoryLimit:    cfg.Sync.HistoryLimit,
	}

	// Initialize PostgreSQL recorder
	if cfg.Postgres.Enabled {
		t.db, err = postgres.InitializeAndMigrate(cfg.Postgres, cfg.Env, true)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		opts.Recorder = t.db
		if cfg.Postgres.Retention > 0 {
			t.pruner = t.db
		}
	}

	feed := pricefeed.NewRESTClient(cfg.Feed.BaseURL, cfg.Feed.Timeout)
	t.engine, err = syncengine.New(feed, clock.NewTicker(), opts, logger)
	if err != nil {
		t.close()
		return nil, fmt.Errorf("failed to create sync engine: %w", err)
	}

	t.hub = viewstream.NewHub(t.engine, logger)
	return t, nil
}

func (t *Tracker) Engine() *syncengine.Engine { return t.engine }

func (t *Tracker) Hub() *viewstream.Hub { return t.hub }

// Run runs the engine, the view stream and the status logger until ctx is
// done or one of them fails.
func (t *Tracker) Run(ctx context.Context) error {
	defer t.close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return t.engine.Run(ctx) })

	updates, unsubscribe := t.engine.Subscribe()
	defer unsubscribe()
	g.Go(func() error {
		t.hub.Run(ctx, updates)
		return nil
	})

	if t.cfg.Stream.Enabled {
		g.Go(func() error { return t.serve(ctx) })
	}

	// Periodically print cache status and prune the snapshot journal
	g.Go(func() error {
		ticker := time.NewTicker(statusPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				t.logStatus()
				t.pruneSnapshots(ctx, now)
			}
		}
	})

	return g.Wait()
}

func (t *Tracker) logStatus() {
	v := t.engine.View()
	stats := t.engine.Stats()
	fields := []zap.Field{
		zap.String("symbol", v.Symbol.String()),
		zap.Stringer("interval", v.Interval),
		zap.Int("series", len(v.Series)),
		zap.Int("cached_prices", stats.CachedPrices),
		zap.Int("history_entries", stats.HistoryEntries),
		zap.Int("clients", t.hub.ClientCount()),
	}
	if v.Latest != nil {
		fields = append(fields, zap.Float64("price", v.Latest.Price), zap.Bool("anomaly", v.Latest.IsAnomaly))
	}
	t.logger.Info("tracker status", fields...)
}

// pruneSnapshots deletes recorded snapshots older than the retention window.
func (t *Tracker) pruneSnapshots(ctx context.Context, now time.Time) {
	if t.pruner == nil {
		return
	}
	cutoff := now.Add(-t.cfg.Postgres.Retention)
	deleted, err := t.pruner.DeleteOldSnapshots(ctx, cutoff)
	if err != nil {
		t.logger.Warn("failed to prune snapshots", zap.Time("before", cutoff), zap.Error(err))
		return
	}
	if deleted > 0 {
		t.logger.Info("pruned old snapshots", zap.Int64("deleted", deleted), zap.Time("before", cutoff))
	}
}

func (t *Tracker) serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(t.cfg.Stream.Path, t.hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              t.cfg.Stream.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	t.logger.Info("view stream listening", zap.String("addr", srv.Addr), zap.String("path", t.cfg.Stream.Path))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("view stream server: %w", err)
	}
	return nil
}

func (t *Tracker) close() {
	if t.db == nil {
		return
	}
	if err := t.db.Close(); err != nil {
		t.logger.Warn("failed to close DB", zap.Error(err))
	}
}
