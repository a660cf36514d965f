package changefeed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/engine"
	"github.com/distributor-bonus-ledger/internal/platform/messaging/producers"
)

// Handler applies decoded events to a projection in arrival order.
type Handler struct {
	logger     *slog.Logger
	projection *engine.Projection
	decoder    Decoder
	dlq        producers.DeadLetterPublisher
	onChange   func(engine.View)
}

// NewHandler builds a handler. dlq may be nil; onChange, when set, receives the
// view after every event that changed the projection.
func NewHandler(logger *slog.Logger, projection *engine.Projection, decoder Decoder, dlq producers.DeadLetterPublisher, onChange func(engine.View)) *Handler {
	return &Handler{
		logger:     logger,
		projection: projection,
		decoder:    decoder,
		dlq:        dlq,
		onChange:   onChange,
	}
}

// Handle satisfies consumers.MessageHandler. Messages that cannot be decoded or
// that carry an invalid record are parked on the DLQ and acknowledged; only a
// failing DLQ write is returned, which leaves the offset uncommitted.
func (h *Handler) Handle(ctx context.Context, key []byte, value []byte) error {
	event, err := h.decoder.Decode(value)
	if errors.Is(err, ErrForeignTable) {
		h.logger.Debug("Ignoring change event for another table", "key", string(key))
		return nil
	}
	if err != nil {
		return h.park(ctx, key, value, err)
	}

	view, changed, err := h.apply(event)
	if err != nil {
		return h.park(ctx, key, value, err)
	}
	if !changed {
		h.logger.Debug("Change event left projection unchanged", "type", string(event.Type), "key", string(key))
		return nil
	}

	h.logger.Info("Projection updated",
		"type", string(event.Type),
		"seq", view.Seq,
		"records", len(view.Records),
		"total_paid", view.Summary.TotalPaid,
		"total_unpaid", view.Summary.TotalUnpaid,
	)
	if h.onChange != nil {
		h.onChange(view)
	}
	return nil
}

func (h *Handler) apply(event bonus.ChangeEvent) (engine.View, bool, error) {
	switch event.Type {
	case bonus.EventInsert:
		return h.projection.OnInsert(*event.New)
	case bonus.EventUpdate:
		return h.projection.OnUpdate(*event.New)
	default:
		view, changed := h.projection.OnDelete(event.Old.ID)
		return view, changed, nil
	}
}

func (h *Handler) park(ctx context.Context, key, value []byte, cause error) error {
	h.logger.Warn("Rejected change event", "key", string(key), "error", cause)
	if h.dlq == nil {
		return nil
	}

	err := h.dlq.PublishToDLQ(ctx, string(key), value, cause.Error())
	if errors.Is(err, producers.ErrDLQDisabled) {
		return nil
	}
	return err
}
