package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"mercato/ledger"
	"mercato/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory doubles ---

// memLedger implements the conditional decrement the storage layer
// provides in production: the check and the write happen under one lock.
type memLedger struct {
	mu       sync.Mutex
	products map[string]*models.Product
}

func (m *memLedger) ReserveStock(_ context.Context, productID string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return 0, &ledger.InsufficientStockError{ProductID: productID, Requested: qty}
	}
	if p.Stock < qty {
		return p.Stock, &ledger.InsufficientStockError{ProductID: productID, Name: p.Name, Available: p.Stock, Requested: qty}
	}
	p.Stock -= qty
	return p.Stock, nil
}

func (m *memLedger) RestoreStock(_ context.Context, productID string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[productID]
	p.Stock += qty
	return p.Stock, nil
}

func (m *memLedger) Get(_ context.Context, productID string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memLedger) stock(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID].Stock
}

type memCarts struct {
	mu    sync.Mutex
	carts map[string]*models.Cart
}

func (m *memCarts) Get(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	return &cp, nil
}

func (m *memCarts) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[userID]; ok {
		c.Items = []models.CartItem{}
	}
	return nil
}

type memAddresses struct {
	addrs map[string]*models.Address
}

func (m *memAddresses) Get(_ context.Context, addressID string) (*models.Address, error) {
	return m.addrs[addressID], nil
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func (m *memOrders) Insert(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.OrderID] = &cp
	return nil
}

func (m *memOrders) Get(_ context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) Cancel(_ context.Context, orderID string, requirePending bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.StockRestored {
		return false, nil
	}
	if requirePending && o.Status != models.OrderPending {
		return false, nil
	}
	o.Status = models.OrderCancelled
	o.StockRestored = true
	return true, nil
}

func (m *memOrders) Update(_ context.Context, orderID string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[orderID]
	if s, ok := fields["status"].(string); ok {
		o.Status = s
	}
	if tn, ok := fields["trackingnumber"].(string); ok {
		o.TrackingNumber = tn
	}
	return nil
}

func (m *memOrders) ListByUser(_ context.Context, userID string, skip, limit int64) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			list = append(list, *o)
		}
	}
	return list, int64(len(list)), nil
}

// --- fixtures ---

func newTestEngine(products map[string]*models.Product, carts map[string]*models.Cart) (*Engine, *memLedger, *memOrders) {
	led := &memLedger{products: products}
	ord := &memOrders{orders: map[string]*models.Order{}}
	eng := &Engine{
		Carts:    &memCarts{carts: carts},
		Products: led,
		Addresses: &memAddresses{addrs: map[string]*models.Address{
			"addr1": {AddressID: "addr1", UserID: "u1", Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701", Country: "US"},
			"addr2": {AddressID: "addr2", UserID: "u2", Street: "2 Oak Ave", City: "Portland", State: "OR", Zip: "97201", Country: "US"},
		}},
		Orders: ord,
		Ledger: led,
	}
	return eng, led, ord
}

func product(id, name string, price float64, stock int) *models.Product {
	return &models.Product{
		ProductID: id, Name: name,
		ActualPrice: price, DiscountedPrice: price,
		Stock: stock, LowStockThreshold: 1,
	}
}

// --- tests ---

func TestPlaceOrderCapturesPricesAndClearsCart(t *testing.T) {
	products := map[string]*models.Product{
		"pa": product("pa", "Widget", 10, 100),
		"pb": product("pb", "Gadget", 20, 100),
	}
	carts := map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{
			{ProductID: "pa", Quantity: 2},
			{ProductID: "pb", Quantity: 1},
		}},
	}
	eng, led, _ := newTestEngine(products, carts)

	order, err := eng.PlaceOrder(context.Background(), "u1", "addr1", "Card", "")
	require.NoError(t, err)

	assert.Equal(t, 40.0, order.Total)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, "Credit Card", order.PaymentMethod)
	assert.Equal(t, "1 Main St", order.Address.Street)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 10.0, order.Items[0].PriceAtOrder)
	assert.Equal(t, 20.0, order.Items[1].PriceAtOrder)

	// stock deducted
	assert.Equal(t, 98, led.stock("pa"))
	assert.Equal(t, 99, led.stock("pb"))

	// cart emptied but not deleted
	cart, err := eng.Carts.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, cart)
	assert.Empty(t, cart.Items)

	// later price changes don't rewrite the snapshot
	led.mu.Lock()
	led.products["pa"].DiscountedPrice = 99
	led.mu.Unlock()
	persisted, err := eng.Orders.Get(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, persisted.Items[0].PriceAtOrder)
	assert.Equal(t, 40.0, persisted.Total)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	eng, _, _ := newTestEngine(map[string]*models.Product{}, map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{}},
	})

	_, err := eng.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "")
	assert.ErrorIs(t, err, ErrEmptyCart)

	// no cart at all behaves the same
	_, err = eng.PlaceOrder(context.Background(), "nobody", "addr1", "Cash", "")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrderAddressOwnership(t *testing.T) {
	eng, _, _ := newTestEngine(map[string]*models.Product{
		"pa": product("pa", "Widget", 10, 5),
	}, map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{{ProductID: "pa", Quantity: 1}}},
	})

	// addr2 belongs to u2
	_, err := eng.PlaceOrder(context.Background(), "u1", "addr2", "Cash", "")
	assert.ErrorIs(t, err, ErrAddressNotFound)

	_, err = eng.PlaceOrder(context.Background(), "u1", "missing", "Cash", "")
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestPlaceOrderInsufficientStockLeavesStockUntouched(t *testing.T) {
	products := map[string]*models.Product{
		"pa": product("pa", "Widget", 10, 5),
		"pb": product("pb", "Gadget", 20, 1),
	}
	carts := map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{
			{ProductID: "pa", Quantity: 2},
			{ProductID: "pb", Quantity: 3}, // over stock
		}},
	}
	eng, led, _ := newTestEngine(products, carts)

	_, err := eng.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "")
	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Gadget", stockErr.Name)

	// nothing deducted anywhere
	assert.Equal(t, 5, led.stock("pa"))
	assert.Equal(t, 1, led.stock("pb"))

	// cart untouched
	cart, _ := eng.Carts.Get(context.Background(), "u1")
	assert.Len(t, cart.Items, 2)
}

// contestedLedger loses the reservation race for one product: the read
// sees enough stock but the conditional decrement fails, as when another
// checkout grabs the last units in between.
type contestedLedger struct {
	*memLedger
	contested string
}

func (c *contestedLedger) ReserveStock(ctx context.Context, productID string, qty int) (int, error) {
	if productID == c.contested {
		return 0, &ledger.InsufficientStockError{ProductID: productID, Name: "Gadget", Available: 0, Requested: qty}
	}
	return c.memLedger.ReserveStock(ctx, productID, qty)
}

// A reservation that fails midway must roll back reservations already taken
// for the same order.
func TestPlaceOrderRollsBackPartialReservations(t *testing.T) {
	products := map[string]*models.Product{
		"pa": product("pa", "Widget", 10, 5),
		"pb": product("pb", "Gadget", 20, 5),
	}
	carts := map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{
			{ProductID: "pa", Quantity: 2},
			{ProductID: "pb", Quantity: 2},
		}},
	}
	eng, led, _ := newTestEngine(products, carts)
	eng.Ledger = &contestedLedger{memLedger: led, contested: "pb"}

	_, err := eng.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "")
	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	assert.Equal(t, 5, led.stock("pa"), "pa reservation must be rolled back")
	assert.Equal(t, 5, led.stock("pb"))
}

func TestCancelOrderRestoresStockExactlyOnce(t *testing.T) {
	products := map[string]*models.Product{
		"pa": product("pa", "Widget", 10, 10),
	}
	carts := map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{{ProductID: "pa", Quantity: 4}}},
	}
	eng, led, _ := newTestEngine(products, carts)

	order, err := eng.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "")
	require.NoError(t, err)
	assert.Equal(t, 6, led.stock("pa"))

	cancelled, err := eng.CancelOrder(context.Background(), "u1", order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Equal(t, 10, led.stock("pa"))

	// second cancel: no double restoration
	_, err = eng.CancelOrder(context.Background(), "u1", order.OrderID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 10, led.stock("pa"))
}

func TestCancelOrderRejectsNonPending(t *testing.T) {
	products := map[string]*models.Product{
		"pa": product("pa", "Widget", 10, 10),
	}
	carts := map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{{ProductID: "pa", Quantity: 2}}},
	}
	eng, led, ord := newTestEngine(products, carts)

	order, err := eng.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "")
	require.NoError(t, err)

	require.NoError(t, ord.Update(context.Background(), order.OrderID, map[string]any{"status": models.OrderShipped}))

	_, err = eng.CancelOrder(context.Background(), "u1", order.OrderID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 8, led.stock("pa"), "stock unchanged on rejected cancel")
}

func TestCancelOrderOwnership(t *testing.T) {
	products := map[string]*models.Product{
		"pa": product("pa", "Widget", 10, 10),
	}
	carts := map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{{ProductID: "pa", Quantity: 1}}},
	}
	eng, _, _ := newTestEngine(products, carts)

	order, err := eng.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "")
	require.NoError(t, err)

	_, err = eng.CancelOrder(context.Background(), "u2", order.OrderID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = eng.CancelOrder(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

// Two checkouts race for the same product: stock 5, each wants 3. Exactly
// one may win and the loser must leave stock at 2, never negative, never
// double-deducted.
func TestConcurrentPlacementsSingleWinner(t *testing.T) {
	products := map[string]*models.Product{
		"pa": product("pa", "Widget", 10, 5),
	}
	carts := map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{{ProductID: "pa", Quantity: 3}}},
		"u2": {UserID: "u2", Items: []models.CartItem{{ProductID: "pa", Quantity: 3}}},
	}
	eng, led, _ := newTestEngine(products, carts)

	type result struct {
		order *models.Order
		err   error
	}
	results := make(chan result, 2)

	var wg sync.WaitGroup
	for _, u := range []struct{ user, addr string }{{"u1", "addr1"}, {"u2", "addr2"}} {
		wg.Add(1)
		go func(user, addr string) {
			defer wg.Done()
			o, err := eng.PlaceOrder(context.Background(), user, addr, "Cash", "")
			results <- result{o, err}
		}(u.user, u.addr)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for res := range results {
		if res.err == nil {
			wins++
		} else {
			losses++
			var stockErr *ledger.InsufficientStockError
			assert.ErrorAs(t, res.err, &stockErr)
		}
	}

	assert.Equal(t, 1, wins, "exactly one placement must succeed")
	assert.Equal(t, 1, losses)
	assert.Equal(t, 2, led.stock("pa"))
}

func TestAdminUpdateCancellationIsIdempotent(t *testing.T) {
	products := map[string]*models.Product{
		"pa": product("pa", "Widget", 10, 10),
	}
	carts := map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{{ProductID: "pa", Quantity: 3}}},
	}
	eng, led, _ := newTestEngine(products, carts)

	order, err := eng.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "")
	require.NoError(t, err)
	assert.Equal(t, 7, led.stock("pa"))

	// admin cancels through the generic update path
	updated, err := eng.AdminUpdate(context.Background(), order.OrderID, map[string]any{"status": models.OrderCancelled})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, updated.Status)
	assert.Equal(t, 10, led.stock("pa"))

	// repeating the same update must not restore again
	_, err = eng.AdminUpdate(context.Background(), order.OrderID, map[string]any{"status": models.OrderCancelled})
	require.NoError(t, err)
	assert.Equal(t, 10, led.stock("pa"))

	// and neither may a user cancel after the admin one
	_, err = eng.CancelOrder(context.Background(), "u1", order.OrderID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 10, led.stock("pa"))
}

func TestAdminUpdateProtectsImmutableFields(t *testing.T) {
	products := map[string]*models.Product{
		"pa": product("pa", "Widget", 10, 10),
	}
	carts := map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{{ProductID: "pa", Quantity: 1}}},
	}
	eng, _, _ := newTestEngine(products, carts)

	order, err := eng.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "")
	require.NoError(t, err)

	updated, err := eng.AdminUpdate(context.Background(), order.OrderID, map[string]any{
		"status":         models.OrderShipped,
		"trackingNumber": "TRK123",
		"Total":          0.0,
		"userId":         "attacker",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, updated.Status)
	assert.Equal(t, "TRK123", updated.TrackingNumber)
	assert.Equal(t, order.Total, updated.Total)
	assert.Equal(t, "u1", updated.UserID)
}

type memCoupons struct {
	coupons map[string]*models.Coupon
}

func (m *memCoupons) Get(_ context.Context, code string) (*models.Coupon, error) {
	return m.coupons[code], nil
}

func TestPlaceOrderWithCoupon(t *testing.T) {
	products := map[string]*models.Product{
		"pa": product("pa", "Widget", 10, 100),
	}
	carts := map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{{ProductID: "pa", Quantity: 4}}},
	}
	eng, _, _ := newTestEngine(products, carts)
	eng.Coupons = &memCoupons{coupons: map[string]*models.Coupon{
		"SAVE10": {Code: "SAVE10", Discount: 10, IsActive: true, ExpiryDate: time.Now().AddDate(0, 1, 0)},
		"BIG":    {Code: "BIG", Discount: 50, MinOrderAmount: 100, IsActive: true, ExpiryDate: time.Now().AddDate(0, 1, 0)},
		"DEAD":   {Code: "DEAD", Discount: 10, IsActive: true, ExpiryDate: time.Now().AddDate(0, 0, -1)},
	}}

	order, err := eng.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 4.0, order.DiscountApplied)
	assert.Equal(t, 36.0, order.Total)

	// below the minimum order amount
	carts2 := map[string]*models.Cart{
		"u1": {UserID: "u1", Items: []models.CartItem{{ProductID: "pa", Quantity: 4}}},
	}
	eng2, _, _ := newTestEngine(products, carts2)
	eng2.Coupons = eng.Coupons
	_, err = eng2.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "BIG")
	assert.ErrorIs(t, err, ErrInvalidCoupon)

	_, err = eng2.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "DEAD")
	assert.ErrorIs(t, err, ErrInvalidCoupon)

	_, err = eng2.PlaceOrder(context.Background(), "u1", "addr1", "Cash", "NOPE")
	assert.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestNormalizePaymentMethod(t *testing.T) {
	assert.Equal(t, "Credit Card", NormalizePaymentMethod("Card"))
	assert.Equal(t, "Credit Card", NormalizePaymentMethod("Credit Card"))
	assert.Equal(t, "PayPal", NormalizePaymentMethod("PayPal"))
	assert.Equal(t, "Cash", NormalizePaymentMethod("Cash"))
}
