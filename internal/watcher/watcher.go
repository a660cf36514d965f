// Package watcher keeps one live bonus view current: an initial fetch, a change
// feed subscription and an optional periodic refetch that repairs drift.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/distributor-bonus-ledger/internal/engine"
	reporting "github.com/distributor-bonus-ledger/internal/reporting/service"
)

// Fetcher loads a range of records into a projection
type Fetcher interface {
	FetchRecords(ctx context.Context, q reporting.Query, view *engine.Projection) (*reporting.FetchResult, error)
}

// Subscription is the change feed lifecycle driven by the watcher
type Subscription interface {
	Subscribe(ctx context.Context) error
	Unsubscribe() error
}

// Watcher owns the fetch side of a projection; the subscription owns the event side.
type Watcher struct {
	fetcher        Fetcher
	subscription   Subscription
	view           *engine.Projection
	query          reporting.Query
	resyncInterval time.Duration
	onChange       func(engine.View)
	logger         *slog.Logger
}

func NewWatcher(
	logger *slog.Logger,
	fetcher Fetcher,
	subscription Subscription,
	view *engine.Projection,
	query reporting.Query,
	resyncInterval time.Duration,
	onChange func(engine.View),
) *Watcher {
	return &Watcher{
		fetcher:        fetcher,
		subscription:   subscription,
		view:           view,
		query:          query,
		resyncInterval: resyncInterval,
		onChange:       onChange,
		logger:         logger,
	}
}

// Run seeds the view, subscribes and refetches every resync interval until ctx
// is canceled. The view is seeded before subscribing so events always find a
// filter to match against. A failed initial fetch or subscription is returned;
// failed refetches are logged and the previous view is kept.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("Starting bonus watcher",
		"start", w.query.Start,
		"end", w.query.End,
		"group", w.query.GroupKey,
		"resync_interval", w.resyncInterval.String(),
	)

	if err := w.resync(ctx); err != nil {
		return fmt.Errorf("failed to load initial view: %w", err)
	}

	if err := w.subscription.Subscribe(ctx); err != nil {
		return err
	}
	defer func() {
		if err := w.subscription.Unsubscribe(); err != nil {
			w.logger.Error("Failed to unsubscribe from change feed", "error", err)
		}
	}()

	if w.resyncInterval <= 0 {
		<-ctx.Done()
		w.logger.Info("Bonus watcher stopping due to context cancellation.")
		return nil
	}

	ticker := time.NewTicker(w.resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Bonus watcher stopping due to context cancellation.")
			return nil
		case <-ticker.C:
			w.logger.Debug("Bonus watcher tick: refetching view")
			if err := w.resync(ctx); err != nil {
				w.logger.Error("Failed to refetch bonus view", "error", err)
			}
		}
	}
}

func (w *Watcher) resync(ctx context.Context) error {
	result, err := w.fetcher.FetchRecords(ctx, w.query, w.view)
	if err != nil {
		return err
	}
	if result.Stale {
		return nil
	}
	if result.Truncated {
		w.logger.Warn("Bonus view is truncated", "records", len(result.Records))
	}
	if w.onChange != nil {
		w.onChange(w.view.View())
	}
	return nil
}
