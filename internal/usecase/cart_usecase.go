package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	repo "app/internal/repository"
	"app/internal/validator"

	"github.com/shopspring/decimal"
)

// CartUsecase はカートの業務ロジック。
// 在庫・価格は毎回カタログの現在値を読む。クライアントが持ってきた値は信用しない。
type CartUsecase struct {
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	locks        *OwnerLocker
}

func NewCartUsecase(
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	locks *OwnerLocker,
) *CartUsecase {
	return &CartUsecase{
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		locks:        locks,
	}
}

// カート1行。name/image/price/stockはカタログの現在値（読み取り時に毎回引き直す）。
type CartLineResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Price     decimal.Decimal `json:"price"`
	Stock     int64           `json:"stock"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartResponse struct {
	Items []CartLineResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

type AddItemInput struct {
	ProductID int64
	Quantity  int64
}

type SetQuantityInput struct {
	Quantity int64
}

// カートに追加（同一商品は数量加算）。
func (u *CartUsecase) AddItem(ctx context.Context, owner string, in AddItemInput) (CartResponse, error) {
	if owner == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid product_id")
	}
	if err := validator.ValidateQuantity(in.Quantity); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidQuantity, "invalid quantity")
	}

	defer u.locks.Lock(owner).Unlock()

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "product not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !p.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "product not found")
	}

	// 既存数量＋追加数量を現在在庫と比べる
	var existingQty int64 = 0
	existing, err := u.cartItemRepo.FindByOwnerAndProduct(ctx, owner, in.ProductID)
	if err == nil {
		existingQty = existing.Quantity
	} else if !errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	// 加算前に比較する。existingQty + in.Quantity は巨大なquantityで
	// 桁あふれして負になり、在庫チェックをすり抜けるので合計はとらない。
	if in.Quantity > p.Stock || existingQty > p.Stock-in.Quantity {
		return CartResponse{}, NewHTTPError(http.StatusConflict, CodeInsufficientStock,
			fmt.Sprintf("insufficient stock: %s", p.Name))
	}

	if err := u.cartItemRepo.Upsert(ctx, owner, in.ProductID, in.Quantity); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, owner)
}

// 数量変更（＋/−ボタン）。在庫超過はクランプせずエラーで返す。
func (u *CartUsecase) SetQuantity(ctx context.Context, owner string, productID int64, in SetQuantityInput) (CartResponse, error) {
	if owner == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid product_id")
	}
	if err := validator.ValidateQuantity(in.Quantity); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidQuantity, "invalid quantity")
	}

	defer u.locks.Lock(owner).Unlock()

	if _, err := u.cartItemRepo.FindByOwnerAndProduct(ctx, owner, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "cart item not found")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//在庫は必ず現在値を引き直す
	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "product not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !p.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "product not found")
	}
	if in.Quantity > p.Stock {
		return CartResponse{}, NewHTTPError(http.StatusConflict, CodeInsufficientStock,
			fmt.Sprintf("insufficient stock: %s", p.Name))
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, owner, productID, in.Quantity); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "cart item not found")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, owner)
}

// 明細削除。存在しない明細の削除は成功扱い（古いUI状態からの二重削除を許容）。
func (u *CartUsecase) RemoveItem(ctx context.Context, owner string, productID int64) (CartResponse, error) {
	if owner == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid product_id")
	}

	defer u.locks.Lock(owner).Unlock()

	if err := u.cartItemRepo.Delete(ctx, owner, productID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, owner)
}

// カート取得。明細が無ければ空リスト（エラーにしない）。
func (u *CartUsecase) ListCart(ctx context.Context, owner string) (CartResponse, error) {
	if owner == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	return u.buildCartResponse(ctx, owner)
}

// 明細とカタログ現在値をまとめてCartResponseを作る。
func (u *CartUsecase) buildCartResponse(ctx context.Context, owner string) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByOwner(ctx, owner)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	lines := make([]CartLineResponse, 0, len(items))

	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			// 商品が消えた明細は表示しない
			continue
		}
		if err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if !p.IsActive {
			continue
		}

		lines = append(lines, CartLineResponse{
			ProductID: it.ProductID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Price:     p.Price,
			Stock:     p.Stock,
			Quantity:  it.Quantity,
			LineTotal: p.Price.Mul(decimal.NewFromInt(it.Quantity)),
		})
	}

	return CartResponse{Items: lines, Total: ComputeTotal(lines)}, nil
}

// ComputeTotal は Σ(price × quantity) を正確なdecimal演算で返す。純関数。
func ComputeTotal(lines []CartLineResponse) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(l.Quantity)))
	}
	return total
}
