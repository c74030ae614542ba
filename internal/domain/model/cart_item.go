package model

import "time"

// カート明細。(owner, product_id) で一意。
// カートはこの明細の集合でしかなく、cartsテーブルは持たない。
// 価格は保存しない。表示もチェックアウトも常にカタログの現在値を読む。
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Owner     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_cart_items_owner_product" json:"owner"`
	ProductID int64     `gorm:"not null;uniqueIndex:idx_cart_items_owner_product;index" json:"product_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
