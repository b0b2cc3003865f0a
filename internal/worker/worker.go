package worker

import (
	"context"
	"encoding/json"
	"errors"

	"commerce-core/internal/broker"
	"commerce-core/internal/models"
	"commerce-core/internal/service"
	"commerce-core/internal/util"

	"go.uber.org/zap"
)

// PaymentWorker consumes payment-status events from the external payment
// collaborator and applies them through the order state machine's narrow
// setter.
type PaymentWorker struct {
	consumer *broker.Consumer
	orders   *service.OrderService
	handler  *broker.EventHandler
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewPaymentWorker creates a new payment worker
func NewPaymentWorker(consumer *broker.Consumer, orders *service.OrderService) *PaymentWorker {
	w := &PaymentWorker{
		consumer: consumer,
		orders:   orders,
		handler:  broker.NewEventHandler(),
		logger:   util.GetLogger(),
		stopCh:   make(chan struct{}),
	}

	w.handler.OnPaymentStatusChanged(w.handlePaymentStatusChanged)
	return w
}

func (w *PaymentWorker) handlePaymentStatusChanged(ctx context.Context, event *models.PaymentStatusChangedEvent) error {
	_, err := w.orders.MarkPaymentStatus(ctx, event.OrderID, event.PaymentStatus)
	if errors.Is(err, service.ErrNotFound) {
		// the order never existed here; log and commit so the message is
		// not redelivered forever
		w.logger.Warn("Payment event for unknown order",
			zap.Int64("order_id", event.OrderID),
			zap.String("event_id", event.EventID))
		return nil
	}
	if err != nil {
		return err
	}

	w.logger.Info("Payment status applied",
		zap.Int64("order_id", event.OrderID),
		zap.String("payment_status", string(event.PaymentStatus)))
	return nil
}

// permanentFailure reports whether retrying the message can never succeed:
// the payload is not valid JSON, does not match the event shape, or fails
// input validation.
func permanentFailure(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, service.ErrInvalidInput)
}

// Start consumes messages until the context is cancelled or Stop is called.
func (w *PaymentWorker) Start(ctx context.Context) error {
	w.logger.Info("Payment worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		default:
			msg, err := w.consumer.ConsumeMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Error("Failed to fetch message", zap.Error(err))
				continue
			}

			if err := w.handler.HandleMessage(ctx, msg); err != nil {
				if !permanentFailure(err) {
					// transient; leave uncommitted so the message is retried
					w.logger.Error("Failed to handle payment event", zap.Error(err))
					continue
				}
				// the payload will never parse or validate; commit past it
				w.logger.Error("Dropping malformed payment event",
					zap.Error(err),
					zap.ByteString("payload", msg.Value))
			}

			if err := w.consumer.CommitMessage(ctx, msg); err != nil {
				w.logger.Error("Failed to commit message", zap.Error(err))
			}
		}
	}
}

// Stop signals the worker to exit.
func (w *PaymentWorker) Stop() {
	close(w.stopCh)
}
