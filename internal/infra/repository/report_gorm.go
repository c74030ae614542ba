package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

// 売上集計はorders/order_linesのスナップショットから計算する。
// カートや現在の商品価格は参照しない（過去の売上が動いてしまうため）。
type ReportGormRepository struct {
	db *gorm.DB
}

func NewReportGormRepository(db *gorm.DB) *ReportGormRepository {
	return &ReportGormRepository{db: db}
}

func (r *ReportGormRepository) SalesSummary(ctx context.Context) (repo.SalesSummary, error) {
	var out repo.SalesSummary

	err := r.db.WithContext(ctx).
		Raw(`SELECT COALESCE(SUM(total_amount), 0) AS total_sales, COUNT(*) AS total_orders
		     FROM orders
		     WHERE status <> ?`, model.OrderStatusCanceled).
		Scan(&out).Error
	if err != nil {
		return repo.SalesSummary{}, err
	}

	// ダッシュボードの管理者数
	err = r.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM users WHERE role = ?`, model.RoleAdmin).
		Scan(&out.TotalAdmins).Error
	if err != nil {
		return repo.SalesSummary{}, err
	}

	return out, nil
}

// 日別売上（直近days日）
func (r *ReportGormRepository) DailySales(ctx context.Context, days int) ([]repo.DailySales, error) {
	var rows []repo.DailySales

	cutoff := time.Now().AddDate(0, 0, -days)

	err := r.db.WithContext(ctx).
		Raw(`SELECT DATE(created_at) AS date, SUM(total_amount) AS sales
		     FROM orders
		     WHERE status <> ? AND created_at >= ?
		     GROUP BY DATE(created_at)
		     ORDER BY date DESC`, model.OrderStatusCanceled, cutoff).
		Scan(&rows).Error
	if err != nil {
		return []repo.DailySales{}, err
	}

	return rows, nil
}

func (r *ReportGormRepository) RecentOrders(ctx context.Context, limit int) ([]model.Order, error) {
	var orders []model.Order

	if err := r.db.WithContext(ctx).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return []model.Order{}, err
	}

	return orders, nil
}

func (r *ReportGormRepository) LowStockProducts(ctx context.Context, threshold int64, limit int) ([]model.Product, error) {
	var products []model.Product

	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND stock < ?", true, threshold).
		Order("stock asc").Order("id asc").
		Limit(limit).
		Find(&products).Error; err != nil {
		return []model.Product{}, err
	}

	return products, nil
}

// 商品別売上ランキング
func (r *ReportGormRepository) ProductSales(ctx context.Context, limit int) ([]repo.ProductSales, error) {
	var rows []repo.ProductSales

	err := r.db.WithContext(ctx).
		Raw(`SELECT ol.product_id,
		            ol.product_name_snapshot AS product_name,
		            SUM(ol.quantity) AS total_quantity,
		            SUM(ol.line_total) AS total_sales
		     FROM order_lines ol
		     JOIN orders o ON o.id = ol.order_id
		     WHERE o.status <> ?
		     GROUP BY ol.product_id, ol.product_name_snapshot
		     ORDER BY total_quantity DESC
		     LIMIT ?`, model.OrderStatusCanceled, limit).
		Scan(&rows).Error
	if err != nil {
		return []repo.ProductSales{}, err
	}

	return rows, nil
}
