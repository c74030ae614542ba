package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutUsecase はカート→注文の原子的な変換。
// 注文作成・在庫減算・カートクリアは1トランザクションで、失敗したら全部戻す。
type CheckoutUsecase struct {
	tx     repo.TransactionManager
	locks  *OwnerLocker
	logger *zap.Logger
}

func NewCheckoutUsecase(tx repo.TransactionManager, locks *OwnerLocker, logger *zap.Logger) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, locks: locks, logger: logger}
}

type OrderLineOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type OrderOutput struct {
	ID          int64             `json:"id"`
	OrderNumber string            `json:"order_number"`
	Owner       string            `json:"owner"`
	Status      string            `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []OrderLineOutput `json:"items"`
}

func (u *CheckoutUsecase) Checkout(ctx context.Context, owner string) (OrderOutput, error) {
	if owner == "" {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	// 同一ownerのカート編集と同時に走らせない
	defer u.locks.Lock(owner).Unlock()

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, err := r.CartItems().ListByOwner(ctx, owner)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if len(items) == 0 {
			return NewHTTPError(http.StatusBadRequest, CodeEmptyCart, "cart is empty")
		}

		// まず全明細を現在在庫で再検証する。
		// カート側のstockスナップショットは他ユーザーの購入で古くなっているかもしれない。
		type checkedLine struct {
			product model.Product
			qty     int64
		}

		checked := make([]checkedLine, 0, len(items))
		var short []string

		for _, it := range items {
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, CodeNotFound,
					fmt.Sprintf("product no longer exists: %d", it.ProductID))
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusNotFound, CodeNotFound,
					fmt.Sprintf("product no longer exists: %d", it.ProductID))
			}

			if it.Quantity > p.Stock {
				short = append(short, p.Name)
				continue
			}

			checked = append(checked, checkedLine{product: p, qty: it.Quantity})
		}

		// 1つでも足りなければ注文は作らない。全商品名を返す。
		if len(short) > 0 {
			return NewHTTPError(http.StatusConflict, CodeInsufficientStock,
				fmt.Sprintf("insufficient stock: %s", strings.Join(short, ", ")))
		}

		//在庫減算（条件つき）。検証後に他のTxが抜いた場合はここで落ちてロールバック。
		for _, cl := range checked {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, cl.product.ID, cl.qty)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusConflict, CodeInsufficientStock,
					fmt.Sprintf("insufficient stock: %s", cl.product.Name))
			}
		}

		//スナップショット（価格はこの時点のカタログ現在値で確定）
		now := time.Now()
		total := decimal.Zero
		lines := make([]model.OrderLine, 0, len(checked))

		for _, cl := range checked {
			lineTotal := cl.product.Price.Mul(decimal.NewFromInt(cl.qty))
			total = total.Add(lineTotal)

			lines = append(lines, model.OrderLine{
				ProductID:           cl.product.ID,
				ProductNameSnapshot: cl.product.Name,
				UnitPriceSnapshot:   cl.product.Price,
				Quantity:            cl.qty,
				LineTotal:           lineTotal,
				CreatedAt:           now,
			})
		}

		// 注文作成
		order := model.Order{
			OrderNumber: uuid.NewString(),
			Owner:       owner,
			Status:      model.OrderStatusPlaced,
			TotalAmount: total,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		if err := r.OrderLines().CreateBulk(ctx, orderID, lines); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		//カートクリア（注文と同じTxなので、注文なしでカートだけ消えることはない）
		if err := r.CartItems().ClearByOwner(ctx, owner); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		order.ID = orderID
		out = toOrderOutput(order, lines)
		return nil
	})

	if err != nil {
		if he, ok := AsHTTPError(err); ok && he.Code == CodeInsufficientStock {
			u.logger.Info("checkout rejected",
				zap.String("owner", owner),
				zap.String("reason", he.Message))
		}
		return OrderOutput{}, err
	}

	u.logger.Info("order placed",
		zap.String("owner", owner),
		zap.String("order_number", out.OrderNumber),
		zap.String("total", out.TotalAmount.String()))

	return out, nil
}

// 自分の注文一覧
func (u *CheckoutUsecase) ListMyOrders(ctx context.Context, owner string) ([]OrderOutput, error) {
	if owner == "" {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByOwner(ctx, owner, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			lines, err := r.OrderLines().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			outs = append(outs, toOrderOutput(o, lines))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *CheckoutUsecase) GetMyOrderDetail(ctx context.Context, owner string, orderID int64) (OrderOutput, error) {
	if owner == "" {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if o.Owner != owner {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}

		lines, err := r.OrderLines().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		out = toOrderOutput(o, lines)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, lines []model.OrderLine) OrderOutput {
	outLines := make([]OrderLineOutput, 0, len(lines))
	for _, l := range lines {
		outLines = append(outLines, OrderLineOutput{
			ProductID: l.ProductID,
			Name:      l.ProductNameSnapshot,
			Price:     l.UnitPriceSnapshot,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal,
		})
	}

	return OrderOutput{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Owner:       o.Owner,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
		Items:       outLines,
	}
}
