package repository

import (
	"context"
	"time"

	"app/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 集計は orders / order_lines から取る。カートは見ない。
type SalesSummary struct {
	TotalSales  decimal.Decimal `json:"total_sales"`
	TotalOrders int64           `json:"total_orders"`
	TotalAdmins int64           `json:"total_admins"`
}

type DailySales struct {
	Date  time.Time       `json:"date"`
	Sales decimal.Decimal `json:"sales"`
}

type ProductSales struct {
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalSales    decimal.Decimal `json:"total_sales"`
}

type ReportRepository interface {
	SalesSummary(ctx context.Context) (SalesSummary, error)
	DailySales(ctx context.Context, days int) ([]DailySales, error)
	RecentOrders(ctx context.Context, limit int) ([]model.Order, error)
	LowStockProducts(ctx context.Context, threshold int64, limit int) ([]model.Product, error)
	ProductSales(ctx context.Context, limit int) ([]ProductSales, error)
}
