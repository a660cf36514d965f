package changefeed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/distributor-bonus-ledger/internal/platform/messaging/consumers"
)

// ConsumerFactory opens a fresh consumer for each subscription.
type ConsumerFactory func() consumers.Consumer

// Reconciler owns at most one live subscription at a time.
type Reconciler struct {
	logger      *slog.Logger
	newConsumer ConsumerFactory
	handler     consumers.MessageHandler

	mu     sync.Mutex
	active consumers.Consumer
	cancel context.CancelFunc
}

func NewReconciler(logger *slog.Logger, newConsumer ConsumerFactory, handler consumers.MessageHandler) *Reconciler {
	return &Reconciler{
		logger:      logger,
		newConsumer: newConsumer,
		handler:     handler,
	}
}

// Subscribe opens the subscription. Calling it again while one is active is a no-op.
func (r *Reconciler) Subscribe(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil
	}

	consumer := r.newConsumer()
	subCtx, cancel := context.WithCancel(ctx)
	if err := consumer.Subscribe(subCtx, r.handler); err != nil {
		cancel()
		if closeErr := consumer.Close(); closeErr != nil {
			r.logger.Warn("Failed to close consumer after subscribe error", "error", closeErr)
		}
		return fmt.Errorf("failed to subscribe to change feed: %w", err)
	}

	r.active = consumer
	r.cancel = cancel
	r.logger.Info("Change feed subscription opened")
	return nil
}

// Unsubscribe stops delivery. It is safe to call when not subscribed.
func (r *Reconciler) Unsubscribe() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return nil
	}

	r.cancel()
	err := r.active.Close()
	r.active = nil
	r.cancel = nil
	r.logger.Info("Change feed subscription closed")

	if err != nil {
		return fmt.Errorf("failed to close change feed consumer: %w", err)
	}
	return nil
}

// Subscribed reports whether a subscription is open.
func (r *Reconciler) Subscribed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}
