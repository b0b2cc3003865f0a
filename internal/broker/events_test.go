package broker

import (
	"context"
	"testing"

	"commerce-core/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageRoutesPaymentEvents(t *testing.T) {
	handler := NewEventHandler()

	var received *models.PaymentStatusChangedEvent
	handler.OnPaymentStatusChanged(func(_ context.Context, event *models.PaymentStatusChangedEvent) error {
		received = event
		return nil
	})

	msg := kafka.Message{Value: []byte(
		`{"event_id":"evt-1","event_type":"PAYMENT_STATUS_CHANGED","order_id":42,"payment_status":"paid"}`)}

	require.NoError(t, handler.HandleMessage(context.Background(), msg))
	require.NotNil(t, received)
	assert.Equal(t, int64(42), received.OrderID)
	assert.Equal(t, models.PaymentStatusPaid, received.PaymentStatus)
}

func TestHandleMessageIgnoresUnknownEventType(t *testing.T) {
	handler := NewEventHandler()

	msg := kafka.Message{Value: []byte(`{"event_id":"evt-2","event_type":"SOMETHING_ELSE"}`)}

	// Unknown types are logged and skipped, not surfaced as errors.
	assert.NoError(t, handler.HandleMessage(context.Background(), msg))
}
