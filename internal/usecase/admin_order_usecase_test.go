package usecase

import (
	"context"
	"net/http"
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTxManagerにチェックアウトで注文を1件作る
func placeOrderForAdminTest(t *testing.T, tm *memTxManager, owner string) OrderOutput {
	t.Helper()

	uc := newCheckoutUsecaseForTest(tm)
	out, err := uc.Checkout(context.Background(), owner)
	require.NoError(t, err)
	return out
}

// Test: キャンセルで明細ぶんの在庫が戻る
func TestAdminCancelRestoresStock(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Coffee Beans", "12.50", 5)
	seedCartItem(tm, "alice", 101, 2)

	out := placeOrderForAdminTest(t, tm, "alice")
	require.Equal(t, int64(3), tm.state.products[101].Stock)

	uc := NewAdminOrderUsecase(tm)

	err := uc.UpdateStatus(ctx, out.ID, AdminUpdateOrderStatusInput{Status: "CANCELED"})
	require.NoError(t, err)

	assert.Equal(t, int64(5), tm.state.products[101].Stock)
	assert.Equal(t, model.OrderStatusCanceled, tm.state.orders[out.ID].Status)
}

// Test: 商品が削除済みでもキャンセルは成立する（在庫戻しだけスキップ）
func TestAdminCancelSucceedsWhenProductGone(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Coffee Beans", "12.50", 5)
	seedCartItem(tm, "alice", 101, 2)

	out := placeOrderForAdminTest(t, tm, "alice")

	// 注文後に商品が販売終了・削除された
	delete(tm.state.products, 101)

	uc := NewAdminOrderUsecase(tm)

	err := uc.UpdateStatus(ctx, out.ID, AdminUpdateOrderStatusInput{Status: "CANCELED"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCanceled, tm.state.orders[out.ID].Status)
}

// Test: 出荷済み・キャンセル済みの注文は変更不可（409）
func TestAdminUpdateStatusTerminalGuard(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Coffee Beans", "12.50", 5)
	seedCartItem(tm, "alice", 101, 1)

	out := placeOrderForAdminTest(t, tm, "alice")

	uc := NewAdminOrderUsecase(tm)

	require.NoError(t, uc.UpdateStatus(ctx, out.ID, AdminUpdateOrderStatusInput{Status: "SHIPPED"}))

	err := uc.UpdateStatus(ctx, out.ID, AdminUpdateOrderStatusInput{Status: "PAID"})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Status)
	assert.Equal(t, CodeConflict, he.Code)
}

// Test: 同じステータスへの更新は何もしないで成功
func TestAdminUpdateStatusSameStatusIsNoop(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Coffee Beans", "12.50", 5)
	seedCartItem(tm, "alice", 101, 1)

	out := placeOrderForAdminTest(t, tm, "alice")

	uc := NewAdminOrderUsecase(tm)

	err := uc.UpdateStatus(ctx, out.ID, AdminUpdateOrderStatusInput{Status: "PLACED"})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPlaced, tm.state.orders[out.ID].Status)
}

// Test: 未知のステータスは400
func TestAdminUpdateStatusInvalidValue(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()

	uc := NewAdminOrderUsecase(tm)

	err := uc.UpdateStatus(ctx, 1, AdminUpdateOrderStatusInput{Status: "DELIVERED"})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, CodeInvalidInput, he.Code)
}

// Test: 存在しない注文は404
func TestAdminUpdateStatusNotFound(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()

	uc := NewAdminOrderUsecase(tm)

	err := uc.UpdateStatus(ctx, 999, AdminUpdateOrderStatusInput{Status: "PAID"})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}
