package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"commerce-core/internal/broker"
	"commerce-core/internal/service"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermanentFailure(t *testing.T) {
	handler := broker.NewEventHandler()
	ctx := context.Background()

	t.Run("truncated JSON", func(t *testing.T) {
		err := handler.HandleMessage(ctx, kafka.Message{Value: []byte("{")})
		require.Error(t, err)
		assert.True(t, permanentFailure(err))
	})

	t.Run("wrong field type", func(t *testing.T) {
		err := handler.HandleMessage(ctx, kafka.Message{Value: []byte(`{"event_type":42}`)})
		require.Error(t, err)
		assert.True(t, permanentFailure(err))
	})

	t.Run("invalid input", func(t *testing.T) {
		err := fmt.Errorf("apply payment: %w", service.ErrInvalidInput)
		assert.True(t, permanentFailure(err))
	})

	t.Run("transient errors retry", func(t *testing.T) {
		assert.False(t, permanentFailure(errors.New("connection refused")))
		assert.False(t, permanentFailure(fmt.Errorf("mark payment: %w", service.ErrTransientConflict)))
		assert.False(t, permanentFailure(context.DeadlineExceeded))
	})
}
