package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/energy"
)

// Loader is satisfied by *energy.Cache.
type Loader interface {
	Load(ctx context.Context, force bool) energy.Snapshot
}

// Watcher polls the energy CSV so a newer file is picked up between requests.
type Watcher struct {
	loader   Loader
	interval time.Duration
	logger   *zap.Logger
}

func NewWatcher(loader Loader, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{loader: loader, interval: interval, logger: logger.Named("watcher")}
}

func (w *Watcher) Run(ctx context.Context) {
	w.poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	snap := w.loader.Load(ctx, false)
	if snap.Cached {
		return
	}
	log := w.logger.Info
	if snap.FromFallback {
		log = w.logger.Debug
	}
	log("energy data refreshed",
		zap.String("path", snap.Path),
		zap.Int("rows", len(snap.Readings)),
		zap.Bool("fallback", snap.FromFallback))
}
