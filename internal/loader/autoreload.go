package loader

import (
	"context"
	"log/slog"
	"time"
)

// Autoreloader periodically checks whether the dataset fingerprint changed
// and, if so and past its grace period, invokes reload. It mirrors the
// teacher engine's periodic flush-loop shape: a ticker goroutine that stops
// cleanly on context cancellation.
type Autoreloader struct {
	loader      *Loader
	period      time.Duration
	gracePeriod time.Duration
	reload      func(ctx context.Context) error
	logger      *slog.Logger

	startedAt    time.Time
	lastFinger   int64
	haveFinger   bool
}

// NewAutoreloader returns an Autoreloader bound to loader, invoking reload
// when the fingerprint changes. period <= 0 means autoreload is disabled;
// callers should simply not call Run in that case.
func NewAutoreloader(loader *Loader, period, gracePeriod time.Duration, reload func(ctx context.Context) error) *Autoreloader {
	return &Autoreloader{
		loader:      loader,
		period:      period,
		gracePeriod: gracePeriod,
		reload:      reload,
		logger:      slog.Default().With("component", "autoreload"),
	}
}

// Run blocks, ticking every a.period until ctx is cancelled. Call it in its
// own goroutine. Ticks within the grace period are skipped; the first
// fingerprint observed after it seeds lastFinger without triggering a
// reload, since startup already loaded the current data.
func (a *Autoreloader) Run(ctx context.Context) {
	if a.period <= 0 {
		return
	}
	a.startedAt = time.Now()

	ticker := time.NewTicker(a.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("autoreload loop stopping")
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *Autoreloader) tick(ctx context.Context) {
	if time.Since(a.startedAt) < a.gracePeriod {
		a.logger.Debug("autoreload tick skipped, still within grace period")
		return
	}

	fp, ok, err := a.loader.Fingerprint(ctx)
	if err != nil {
		a.logger.Error("autoreload fingerprint check failed", "error", err)
		return
	}
	if !ok {
		a.logger.Debug("autoreload tick: no fingerprint available")
		return
	}
	if a.haveFinger && fp == a.lastFinger {
		return
	}
	changed := a.haveFinger
	a.lastFinger, a.haveFinger = fp, true
	if !changed {
		// First observed fingerprint since startup; nothing to reload yet.
		return
	}

	a.logger.Info("autoreload detected fingerprint change, triggering reload", "fingerprint", fp)
	if err := a.reload(ctx); err != nil {
		a.logger.Error("autoreload-triggered reload failed", "error", err)
	}
}
