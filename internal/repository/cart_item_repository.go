package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartItemRepository interface {
	ListByOwner(ctx context.Context, owner string) ([]model.CartItem, error)
	FindByOwnerAndProduct(ctx context.Context, owner string, productID int64) (model.CartItem, error)
	// 同一商品は数量加算
	Upsert(ctx context.Context, owner string, productID int64, addQty int64) error
	UpdateQuantity(ctx context.Context, owner string, productID int64, qty int64) error
	Delete(ctx context.Context, owner string, productID int64) error
	ClearByOwner(ctx context.Context, owner string) error
}
