package usecase

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// メモリ上のDB。WithinTxはコピーに対して実行し、
// 成功したらコミット、エラーなら捨てる（ロールバック相当）。
type memState struct {
	products    map[int64]model.Product
	cartItems   map[string][]model.CartItem
	orders      map[int64]model.Order
	orderLines  map[int64][]model.OrderLine
	nextOrderID int64
}

func newMemState() *memState {
	return &memState{
		products:    map[int64]model.Product{},
		cartItems:   map[string][]model.CartItem{},
		orders:      map[int64]model.Order{},
		orderLines:  map[int64][]model.OrderLine{},
		nextOrderID: 1,
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.nextOrderID = s.nextOrderID
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.cartItems {
		items := make([]model.CartItem, len(v))
		copy(items, v)
		c.cartItems[k] = items
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderLines {
		lines := make([]model.OrderLine, len(v))
		copy(lines, v)
		c.orderLines[k] = lines
	}
	return c
}

type memTxManager struct {
	mu    sync.Mutex
	state *memState
}

func newMemTxManager() *memTxManager {
	return &memTxManager{state: newMemState()}
}

func (m *memTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memRepos{s: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

type memRepos struct {
	s *memState
}

func (r *memRepos) Orders() repo.OrderRepository         { return (*memOrderRepo)(r) }
func (r *memRepos) OrderLines() repo.OrderLineRepository { return (*memOrderLineRepo)(r) }
func (r *memRepos) CartItems() repo.CartItemRepository   { return (*memCartRepo)(r) }
func (r *memRepos) Inventory() repo.InventoryRepository  { return (*memInventoryRepo)(r) }
func (r *memRepos) Products() repo.ProductRepository     { return (*memProductRepo)(r) }

type memCartRepo memRepos

func (r *memCartRepo) ListByOwner(ctx context.Context, owner string) ([]model.CartItem, error) {
	items := make([]model.CartItem, len(r.s.cartItems[owner]))
	copy(items, r.s.cartItems[owner])
	return items, nil
}

func (r *memCartRepo) FindByOwnerAndProduct(ctx context.Context, owner string, productID int64) (model.CartItem, error) {
	for _, it := range r.s.cartItems[owner] {
		if it.ProductID == productID {
			return it, nil
		}
	}
	return model.CartItem{}, repo.ErrNotFound
}

func (r *memCartRepo) Upsert(ctx context.Context, owner string, productID int64, addQty int64) error {
	items := r.s.cartItems[owner]
	for i, it := range items {
		if it.ProductID == productID {
			items[i].Quantity += addQty
			return nil
		}
	}
	r.s.cartItems[owner] = append(items, model.CartItem{Owner: owner, ProductID: productID, Quantity: addQty})
	return nil
}

func (r *memCartRepo) UpdateQuantity(ctx context.Context, owner string, productID int64, qty int64) error {
	for i, it := range r.s.cartItems[owner] {
		if it.ProductID == productID {
			r.s.cartItems[owner][i].Quantity = qty
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r *memCartRepo) Delete(ctx context.Context, owner string, productID int64) error {
	items := r.s.cartItems[owner]
	for i, it := range items {
		if it.ProductID == productID {
			r.s.cartItems[owner] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r *memCartRepo) ClearByOwner(ctx context.Context, owner string) error {
	delete(r.s.cartItems, owner)
	return nil
}

type memProductRepo memRepos

func (r *memProductRepo) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	return nil, 0, nil
}

func (r *memProductRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *memProductRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	r.s.products[p.ID] = p
	return p, nil
}

func (r *memProductRepo) Update(ctx context.Context, p model.Product) error {
	r.s.products[p.ID] = p
	return nil
}

func (r *memProductRepo) SoftDelete(ctx context.Context, id int64) error {
	delete(r.s.products, id)
	return nil
}

type memInventoryRepo memRepos

func (r *memInventoryRepo) SetStock(ctx context.Context, productID int64, newStock int64) error {
	p, ok := r.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock = newStock
	r.s.products[productID] = p
	return nil
}

func (r *memInventoryRepo) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	p, ok := r.s.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	r.s.products[productID] = p
	return true, nil
}

func (r *memInventoryRepo) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	p, ok := r.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock += qty
	r.s.products[productID] = p
	return nil
}

type memOrderRepo memRepos

func (r *memOrderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	id := r.s.nextOrderID
	r.s.nextOrderID++
	order.ID = id
	r.s.orders[id] = order
	return id, nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := r.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r *memOrderRepo) ListByOwner(ctx context.Context, owner string, page int, limit int) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range r.s.orders {
		if o.Owner == owner {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memOrderRepo) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	o, ok := r.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	r.s.orders[orderID] = o
	return nil
}

func (r *memOrderRepo) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range r.s.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.Owner != "" && o.Owner != f.Owner {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

type memOrderLineRepo memRepos

func (r *memOrderLineRepo) CreateBulk(ctx context.Context, orderID int64, lines []model.OrderLine) error {
	stored := make([]model.OrderLine, len(lines))
	copy(stored, lines)
	for i := range stored {
		stored[i].OrderID = orderID
	}
	r.s.orderLines[orderID] = stored
	return nil
}

func (r *memOrderLineRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	lines := make([]model.OrderLine, len(r.s.orderLines[orderID]))
	copy(lines, r.s.orderLines[orderID])
	return lines, nil
}

func seedProduct(tm *memTxManager, id int64, name string, price string, stock int64) {
	tm.state.products[id] = model.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
}

func seedCartItem(tm *memTxManager, owner string, productID int64, qty int64) {
	tm.state.cartItems[owner] = append(tm.state.cartItems[owner],
		model.CartItem{Owner: owner, ProductID: productID, Quantity: qty})
}

func newCheckoutUsecaseForTest(tm *memTxManager) *CheckoutUsecase {
	return NewCheckoutUsecase(tm, NewOwnerLocker(), zap.NewNop())
}

// Test: チェックアウト成功で在庫減算・カートクリア・スナップショット確定が全部起きる
func TestCheckoutSuccess(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Coffee Beans", "12.50", 5)
	seedCartItem(tm, "alice", 101, 2)

	uc := newCheckoutUsecaseForTest(tm)

	out, err := uc.Checkout(ctx, "alice")
	require.NoError(t, err)

	assert.NotEmpty(t, out.OrderNumber)
	assert.Equal(t, string(model.OrderStatusPlaced), out.Status)
	assert.True(t, out.TotalAmount.Equal(decimal.RequireFromString("25.00")))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Coffee Beans", out.Items[0].Name)
	assert.True(t, out.Items[0].Price.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, int64(2), out.Items[0].Quantity)

	// 在庫は5→3、カートは空
	assert.Equal(t, int64(3), tm.state.products[101].Stock)
	assert.Empty(t, tm.state.cartItems["alice"])

	// 注文明細も永続化されている
	assert.Len(t, tm.state.orderLines[out.ID], 1)
}

// Test: 一部の明細だけ在庫不足でも注文は一切作らず、在庫もカートも動かない
func TestCheckoutRejectsOnAnyShortageWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Coffee Beans", "12.50", 3)
	seedProduct(tm, 102, "Tea Pot", "40.00", 0)
	seedCartItem(tm, "alice", 101, 2)
	seedCartItem(tm, "alice", 102, 1)

	uc := newCheckoutUsecaseForTest(tm)

	_, err := uc.Checkout(ctx, "alice")
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Status)
	assert.Equal(t, CodeInsufficientStock, he.Code)
	assert.Contains(t, he.Message, "Tea Pot")

	// 足りている側の在庫にも手を付けない
	assert.Equal(t, int64(3), tm.state.products[101].Stock)
	assert.Equal(t, int64(0), tm.state.products[102].Stock)
	assert.Len(t, tm.state.cartItems["alice"], 2)
	assert.Empty(t, tm.state.orders)
}

// Test: 不足商品が複数あれば全商品名を返す
func TestCheckoutNamesAllShortProducts(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Coffee Beans", "12.50", 0)
	seedProduct(tm, 102, "Tea Pot", "40.00", 0)
	seedCartItem(tm, "alice", 101, 1)
	seedCartItem(tm, "alice", 102, 1)

	uc := newCheckoutUsecaseForTest(tm)

	_, err := uc.Checkout(ctx, "alice")
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Contains(t, he.Message, "Coffee Beans")
	assert.Contains(t, he.Message, "Tea Pot")
}

// Test: 空カートのチェックアウトは400 EMPTY_CART
func TestCheckoutEmptyCart(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()

	uc := newCheckoutUsecaseForTest(tm)

	_, err := uc.Checkout(ctx, "alice")
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, CodeEmptyCart, he.Code)
}

// Test: 二重チェックアウト。1回目でカートが消えるので2回目はEMPTY_CART
func TestDoubleCheckoutSecondIsEmptyCart(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Coffee Beans", "12.50", 5)
	seedCartItem(tm, "alice", 101, 2)

	uc := newCheckoutUsecaseForTest(tm)

	_, err := uc.Checkout(ctx, "alice")
	require.NoError(t, err)

	_, err = uc.Checkout(ctx, "alice")
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, CodeEmptyCart, he.Code)

	// 注文は1件だけ
	assert.Len(t, tm.state.orders, 1)
	assert.Equal(t, int64(3), tm.state.products[101].Stock)
}

// Test: 在庫1を2人で取り合ったとき、成功するのは必ず1人だけ
func TestConcurrentCheckoutLastUnitGoesToExactlyOne(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Limited Mug", "9.99", 1)
	seedCartItem(tm, "alice", 101, 1)
	seedCartItem(tm, "bob", 101, 1)

	uc := newCheckoutUsecaseForTest(tm)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, owner := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, owner string) {
			defer wg.Done()
			_, errs[i] = uc.Checkout(ctx, owner)
		}(i, owner)
	}
	wg.Wait()

	var okCount, shortCount int
	for _, err := range errs {
		if err == nil {
			okCount++
			continue
		}
		he, ok := AsHTTPError(err)
		require.True(t, ok)
		assert.Equal(t, CodeInsufficientStock, he.Code)
		shortCount++
	}

	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, shortCount)
	assert.Equal(t, int64(0), tm.state.products[101].Stock)
	assert.Len(t, tm.state.orders, 1)
}

// Test: 販売終了（非公開）になった商品を含むカートは404
func TestCheckoutInactiveProductIsNotFound(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Coffee Beans", "12.50", 5)
	p := tm.state.products[101]
	p.IsActive = false
	tm.state.products[101] = p
	seedCartItem(tm, "alice", 101, 1)

	uc := newCheckoutUsecaseForTest(tm)

	_, err := uc.Checkout(ctx, "alice")
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
	assert.Equal(t, CodeNotFound, he.Code)
}

// Test: 価格はチェックアウト時点で確定し、後からカタログを変えても注文は動かない
func TestCheckoutSnapshotsPrice(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Coffee Beans", "12.50", 5)
	seedCartItem(tm, "alice", 101, 1)

	uc := newCheckoutUsecaseForTest(tm)

	out, err := uc.Checkout(ctx, "alice")
	require.NoError(t, err)

	// 値上げ
	p := tm.state.products[101]
	p.Price = decimal.RequireFromString("99.99")
	tm.state.products[101] = p

	got, err := uc.GetMyOrderDetail(ctx, "alice", out.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("12.50")))
}

// Test: 他人の注文は404（存在も明かさない）
func TestGetMyOrderDetailForeignOwnerIsNotFound(t *testing.T) {
	ctx := context.Background()
	tm := newMemTxManager()
	seedProduct(tm, 101, "Coffee Beans", "12.50", 5)
	seedCartItem(tm, "alice", 101, 1)

	uc := newCheckoutUsecaseForTest(tm)

	out, err := uc.Checkout(ctx, "alice")
	require.NoError(t, err)

	_, err = uc.GetMyOrderDetail(ctx, "bob", out.ID)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}
