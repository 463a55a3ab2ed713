package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

func TestHoldAndResume(t *testing.T) {
	ctx := context.Background()
	_, store := openStore(t, "BISTRO")
	svc := NewHoldService(time.UTC)
	tea := createProduct(t, store, "Tea", 2, false, 0)

	held, err := svc.Hold(ctx, store, cashier(), HoldRequest{
		Items:    []model.CartLine{line(tea, 2)},
		Subtotal: 4,
		Total:    4,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^H-\d{8}-\d{6}-[0-9A-F]{6}$`, held.HoldNumber)
	assert.Equal(t, model.OrderDineIn, held.OrderType)

	list, err := svc.List(ctx, store)
	require.NoError(t, err)
	require.Len(t, list, 1)

	resumed, err := svc.Resume(ctx, store, held.ID)
	require.NoError(t, err)
	assert.Equal(t, held.HoldNumber, resumed.HoldNumber)
	require.Len(t, resumed.Items, 1)
	assert.Equal(t, tea.ID, resumed.Items[0].ProductID)

	_, err = svc.Resume(ctx, store, held.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHoldValidation(t *testing.T) {
	ctx := context.Background()
	_, store := openStore(t, "BISTRO")
	svc := NewHoldService(time.UTC)

	_, err := svc.Hold(ctx, store, cashier(), HoldRequest{})
	assert.True(t, repository.IsValidation(err))

	_, err = svc.Hold(ctx, store, cashier(), HoldRequest{
		Items:     []model.CartLine{{ProductID: 1, Quantity: 1}},
		OrderType: model.OrderType("drive-through"),
	})
	assert.True(t, repository.IsValidation(err))

	assert.ErrorIs(t, svc.Discard(ctx, store, 99), repository.ErrNotFound)
}
