package usecase

import (
	"context"
	"net/http"
	"testing"

	repo "app/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) SetStock(ctx context.Context, productID int64, newStock int64) error {
	args := m.Called(ctx, productID, newStock)
	return args.Error(0)
}

func (m *MockInventoryRepository) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *MockInventoryRepository) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

// Test: 非公開商品の詳細は404（存在を明かさない）
func TestGetPublicProductInactiveIsNotFound(t *testing.T) {
	ctx := context.Background()
	productRepo := new(MockProductRepository)

	p := activeProduct(101, "Coffee Beans", "12.50", 5)
	p.IsActive = false
	productRepo.On("FindByID", ctx, int64(101)).Return(p, nil)

	uc := NewProductUsecase(productRepo, new(MockInventoryRepository))

	_, err := uc.GetPublicProduct(ctx, 101)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

// Test: 一覧のpage/limit/sortバリデーション
func TestListPublicProductsValidation(t *testing.T) {
	uc := NewProductUsecase(new(MockProductRepository), new(MockInventoryRepository))
	ctx := context.Background()

	cases := []ListProductsInput{
		{Page: 0, Limit: 20},
		{Page: 1, Limit: 0},
		{Page: 1, Limit: 101},
		{Page: 1, Limit: 20, Sort: "price"},
	}
	for _, in := range cases {
		_, err := uc.ListPublicProducts(ctx, in)
		he, ok := AsHTTPError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Status)
	}
}

// Test: min_price > max_priceは400
func TestListPublicProductsInvalidPriceRange(t *testing.T) {
	uc := NewProductUsecase(new(MockProductRepository), new(MockInventoryRepository))

	min := decimal.RequireFromString("10.00")
	max := decimal.RequireFromString("5.00")

	_, err := uc.ListPublicProducts(context.Background(), ListProductsInput{
		Page: 1, Limit: 20, MinPrice: &min, MaxPrice: &max,
	})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, CodeInvalidInput, he.Code)
}

// Test: 商品作成のバリデーション（名前必須・負の価格/在庫は拒否）
func TestCreateProductValidation(t *testing.T) {
	uc := NewProductUsecase(new(MockProductRepository), new(MockInventoryRepository))
	ctx := context.Background()

	cases := []AdminProductInput{
		{Name: "", Price: decimal.RequireFromString("1.00"), Stock: 1},
		{Name: "  ", Price: decimal.RequireFromString("1.00"), Stock: 1},
		{Name: "Coffee", Price: decimal.RequireFromString("-0.01"), Stock: 1},
		{Name: "Coffee", Price: decimal.RequireFromString("1.00"), Stock: -1},
	}
	for _, in := range cases {
		_, err := uc.CreateProduct(ctx, in)
		he, ok := AsHTTPError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Status)
	}
}

// Test: 在庫設定は負数を拒否、無い商品は404
func TestSetStock(t *testing.T) {
	ctx := context.Background()
	invRepo := new(MockInventoryRepository)
	invRepo.On("SetStock", ctx, int64(101), int64(10)).Return(nil)
	invRepo.On("SetStock", ctx, int64(999), int64(10)).Return(repo.ErrNotFound)

	uc := NewProductUsecase(new(MockProductRepository), invRepo)

	assert.NoError(t, uc.SetStock(ctx, 101, 10))

	err := uc.SetStock(ctx, 101, -1)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)

	err = uc.SetStock(ctx, 999, 10)
	he, ok = AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}
