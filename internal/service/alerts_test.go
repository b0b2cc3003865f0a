package service

import (
	"context"
	"testing"

	"commerce-core/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAlertState(t *testing.T) {
	cases := []struct {
		name         string
		wasNotified  bool
		threshold    int
		currentStock int
		notified     bool
		edge         bool
	}{
		{"above threshold", false, 10, 50, false, false},
		{"crosses threshold", false, 10, 10, true, true},
		{"crosses below threshold", false, 10, 3, true, true},
		{"already below, no re-fire", true, 10, 5, true, false},
		{"drops to zero while below", true, 10, 0, true, false},
		{"recovers above threshold", true, 10, 20, false, false},
		{"re-crosses after recovery", false, 10, 9, true, true},
		{"exactly at threshold while notified", true, 10, 10, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			notified, edge := nextAlertState(tc.wasNotified, tc.threshold, tc.currentStock)
			assert.Equal(t, tc.notified, notified)
			assert.Equal(t, tc.edge, edge)
		})
	}
}

func TestAlertFiresOncePerCrossing(t *testing.T) {
	// Stock going 12 -> 10 -> 8 -> 15 -> 9 against threshold 10 must
	// produce exactly two notifications.
	threshold := 10
	notified := false
	edges := 0

	for _, stock := range []int{12, 10, 8, 15, 9} {
		var edge bool
		notified, edge = nextAlertState(notified, threshold, stock)
		if edge {
			edges++
		}
	}

	assert.Equal(t, 2, edges)
}

func TestEvaluateCreatesAlertRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t)
	product := env.seedProduct(t, "10.00", 8, 5)

	// Reserving down to 4 crosses the threshold of 5.
	env.placeOrder(t, user.ID, product.ID, 4, "")
	require.Equal(t, 4, env.productStock(t, product.ID))

	alerts, err := env.store.GetStockAlerts(ctx, true, 100, 0)
	require.NoError(t, err)

	var alert *models.StockAlert
	for i := range alerts {
		if alerts[i].ProductID == product.ID && alerts[i].VariantID == nil {
			alert = &alerts[i]
			break
		}
	}
	require.NotNil(t, alert, "expected a flagged alert row for the product")
	assert.True(t, alert.IsNotified)
	assert.Equal(t, 5, alert.Threshold)
	assert.Equal(t, 4, alert.CurrentStock)
	assert.NotNil(t, alert.NotifiedAt)
}
