package usecase

import (
	"context"
	"net/http"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// ダッシュボード向けの売上集計。
type ReportUsecase struct {
	reportRepo        repo.ReportRepository
	lowStockThreshold int64
}

func NewReportUsecase(reportRepo repo.ReportRepository, lowStockThreshold int64) *ReportUsecase {
	return &ReportUsecase{
		reportRepo:        reportRepo,
		lowStockThreshold: lowStockThreshold,
	}
}

func (u *ReportUsecase) SalesSummary(ctx context.Context) (repo.SalesSummary, error) {
	out, err := u.reportRepo.SalesSummary(ctx)
	if err != nil {
		return repo.SalesSummary{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	return out, nil
}

// 日別売上（最大90日）
func (u *ReportUsecase) DailySales(ctx context.Context, days int) ([]repo.DailySales, error) {
	if days < 1 || days > 90 {
		return []repo.DailySales{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid days")
	}

	rows, err := u.reportRepo.DailySales(ctx, days)
	if err != nil {
		return []repo.DailySales{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	return rows, nil
}

func (u *ReportUsecase) RecentOrders(ctx context.Context, limit int) ([]model.Order, error) {
	if limit < 1 || limit > 50 {
		return []model.Order{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid limit")
	}

	orders, err := u.reportRepo.RecentOrders(ctx, limit)
	if err != nil {
		return []model.Order{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	return orders, nil
}

func (u *ReportUsecase) LowStockProducts(ctx context.Context, limit int) ([]model.Product, error) {
	if limit < 1 || limit > 50 {
		return []model.Product{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid limit")
	}

	products, err := u.reportRepo.LowStockProducts(ctx, u.lowStockThreshold, limit)
	if err != nil {
		return []model.Product{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	return products, nil
}

func (u *ReportUsecase) ProductSales(ctx context.Context, limit int) ([]repo.ProductSales, error) {
	if limit < 1 || limit > 100 {
		return []repo.ProductSales{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid limit")
	}

	rows, err := u.reportRepo.ProductSales(ctx, limit)
	if err != nil {
		return []repo.ProductSales{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	return rows, nil
}
