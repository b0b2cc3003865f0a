package service

import (
	"context"
	"testing"

	"commerce-core/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRejectsBadQuantities(t *testing.T) {
	l := &Ledger{}
	ctx := context.Background()

	_, err := l.ReserveTx(ctx, nil, 1, nil, 0, "test", "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = l.ReserveTx(ctx, nil, 1, nil, -2, "test", "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = l.ReleaseTx(ctx, nil, 1, nil, 0, "test", "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = l.AdjustTx(ctx, nil, 1, nil, -1, "test", "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVariantStockIsIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	product := env.seedProduct(t, "10.00", 5, 1)
	variant := env.seedVariant(t, product.ID, 3, 1)

	_, err := env.ledger.Reserve(ctx, product.ID, &variant.ID, 2, "manual hold", "admin")
	require.NoError(t, err)

	// The variant snapshot moves; the product snapshot does not.
	variantStock, err := env.ledger.CurrentStock(ctx, product.ID, &variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, variantStock)
	assert.Equal(t, 5, env.productStock(t, product.ID))
}

func TestAdjustToZero(t *testing.T) {
	// A stocktake may legitimately find nothing on the shelf.
	env := newTestEnv(t)
	ctx := context.Background()

	product := env.seedProduct(t, "10.00", 7, 1)

	entry, err := env.ledger.Adjust(ctx, product.ID, nil, 0, "stocktake", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.StockChangeAdjustment, entry.ChangeType)
	assert.Equal(t, 7, entry.PreviousStock)
	assert.Equal(t, 0, entry.CurrentStock)

	assert.Equal(t, 0, env.productStock(t, product.ID))
}
