// Package orders holds the order workflow: turning a cart into a persisted
// order with stock reserved, and reversing those reservations exactly once
// on cancellation. Stock adjustments are explicit calls into the ledger,
// never side effects of a generic save.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"mercato/coupons"
	"mercato/ledger"
	"mercato/models"
	"mercato/stockwatch"
	"mercato/utils"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrAddressNotFound   = errors.New("address not found or not yours")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("cannot cancel order")
	ErrInvalidCoupon     = errors.New("invalid or expired coupon")
)

// Ledger is the slice of the product ledger the engine needs. Both methods
// return the stock remaining after the adjustment.
type Ledger interface {
	ReserveStock(ctx context.Context, productID string, qty int) (int, error)
	RestoreStock(ctx context.Context, productID string, qty int) (int, error)
}

// CartStore reads and clears a user's pending items.
type CartStore interface {
	Get(ctx context.Context, userID string) (*models.Cart, error) // nil when absent
	Clear(ctx context.Context, userID string) error
}

type ProductStore interface {
	Get(ctx context.Context, productID string) (*models.Product, error) // nil when absent
}

type AddressStore interface {
	Get(ctx context.Context, addressID string) (*models.Address, error) // nil when absent
}

type CouponStore interface {
	Get(ctx context.Context, code string) (*models.Coupon, error) // nil when absent
}

// OrderStore persists orders. Cancel flips the status to Cancelled and
// claims the one-time restoration guard in a single conditional write;
// ok reports whether this call won the claim. requirePending restricts the
// flip to Pending orders (the user-facing path).
type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, orderID string) (*models.Order, error) // nil when absent
	Cancel(ctx context.Context, orderID string, requirePending bool) (bool, error)
	Update(ctx context.Context, orderID string, fields map[string]any) error
	ListByUser(ctx context.Context, userID string, skip, limit int64) ([]models.Order, int64, error)
}

type Engine struct {
	Carts     CartStore
	Products  ProductStore
	Addresses AddressStore
	Orders    OrderStore
	Coupons   CouponStore // optional; nil disables coupon codes
	Ledger    Ledger
	Watch     *stockwatch.Hub // optional
}

// NormalizePaymentMethod maps client aliases onto the stored labels.
func NormalizePaymentMethod(method string) string {
	if method == "Card" {
		return "Credit Card"
	}
	return method
}

// PlaceOrder runs the checkout state machine: validate the cart and
// address, snapshot prices, apply an optional coupon, reserve stock line by
// line, persist, clear the cart. If any reservation fails, every
// reservation already taken for this order is restored before the error
// surfaces — the caller never observes partially deducted stock.
func (e *Engine) PlaceOrder(ctx context.Context, userID, addressID, paymentMethod, couponCode string) (*models.Order, error) {
	cart, err := e.Carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	addr, err := e.Addresses.Get(ctx, addressID)
	if err != nil {
		return nil, err
	}
	if addr == nil || addr.UserID != userID {
		return nil, ErrAddressNotFound
	}

	// Advisory pass: resolve every product and check stock before touching
	// anything. The reservation below is the authoritative check; this one
	// narrows the failure window and produces a clean error for the common
	// case.
	products := make(map[string]*models.Product, len(cart.Items))
	for _, it := range cart.Items {
		p, err := e.Products.Get(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("product %s not found", it.ProductID)
		}
		if p.Stock < it.Quantity {
			return nil, &ledger.InsufficientStockError{
				ProductID: p.ProductID, Name: p.Name,
				Available: p.Stock, Requested: it.Quantity,
			}
		}
		products[it.ProductID] = p
	}

	var total float64
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		p := products[it.ProductID]
		total += p.DiscountedPrice * float64(it.Quantity)
		items = append(items, models.OrderItem{
			ProductID:    p.ProductID,
			Quantity:     it.Quantity,
			PriceAtOrder: p.DiscountedPrice,
		})
	}

	discount, err := e.applyCoupon(ctx, couponCode, total)
	if err != nil {
		return nil, err
	}
	total -= discount

	reserved, err := e.reserveAll(ctx, items, products)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderID: utils.NewID(),
		UserID:  userID,
		Items:   items,
		Total:   total,
		Status:  models.OrderPending,
		Address: models.OrderAddress{
			Street: addr.Street, City: addr.City, State: addr.State,
			Zip: addr.Zip, Country: addr.Country,
		},
		PaymentMethod:   NormalizePaymentMethod(paymentMethod),
		DiscountApplied: discount,
		CreatedAt:       time.Now(),
	}

	if err := e.Orders.Insert(ctx, order); err != nil {
		// The order never existed; give the stock back.
		e.restoreAll(ctx, reserved)
		return nil, err
	}

	if err := e.Carts.Clear(ctx, userID); err != nil {
		log.Printf("placeOrder: cart clear for %s failed: %v", userID, err)
	}

	return order, nil
}

// reserveAll takes the reservations one line at a time. On failure it
// compensates by restoring everything reserved so far, then returns the
// original error.
func (e *Engine) reserveAll(ctx context.Context, items []models.OrderItem, products map[string]*models.Product) ([]models.OrderItem, error) {
	reserved := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		remaining, err := e.Ledger.ReserveStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			e.restoreAll(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, it)
		e.publish("reserved", it.ProductID, -it.Quantity, remaining, products[it.ProductID].LowStockThreshold)
	}
	return reserved, nil
}

// applyCoupon resolves a coupon code into a discount amount off the total.
// An empty code means no coupon. The coupon record is never mutated.
func (e *Engine) applyCoupon(ctx context.Context, code string, total float64) (float64, error) {
	if code == "" {
		return 0, nil
	}
	if e.Coupons == nil {
		return 0, ErrInvalidCoupon
	}
	c, err := e.Coupons.Get(ctx, code)
	if err != nil {
		return 0, err
	}
	if !coupons.Valid(c, time.Now()) || total < c.MinOrderAmount {
		return 0, ErrInvalidCoupon
	}
	return total * c.Discount / 100, nil
}

func (e *Engine) restoreAll(ctx context.Context, items []models.OrderItem) {
	for _, it := range items {
		if _, err := e.Ledger.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
			log.Printf("rollback: restore %d of %s failed: %v", it.Quantity, it.ProductID, err)
		}
	}
}

// CancelOrder cancels a Pending order owned by userID and restores its
// stock. The status flip and the restoration guard are claimed atomically,
// so a second cancel of the same order can never restore twice.
func (e *Engine) CancelOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	o, err := e.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil || o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if o.Status != models.OrderPending {
		return nil, ErrInvalidTransition
	}

	ok, err := e.Orders.Cancel(ctx, orderID, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another cancellation or a status change.
		return nil, ErrInvalidTransition
	}

	e.restoreCancelled(ctx, o)

	o.Status = models.OrderCancelled
	o.StockRestored = true
	return o, nil
}

func (e *Engine) restoreCancelled(ctx context.Context, o *models.Order) {
	for _, it := range o.Items {
		remaining, err := e.Ledger.RestoreStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			log.Printf("cancel %s: restore %d of %s failed: %v", o.OrderID, it.Quantity, it.ProductID, err)
			continue
		}
		threshold := 0
		if p, perr := e.Products.Get(ctx, it.ProductID); perr == nil && p != nil {
			threshold = p.LowStockThreshold
		}
		e.publish("restored", it.ProductID, it.Quantity, remaining, threshold)
	}
}

// AdminUpdate merges fields onto an order. A status change to Cancelled is
// routed through the same guarded cancellation as the user path, so stock
// comes back exactly once no matter which caller flips the status.
func (e *Engine) AdminUpdate(ctx context.Context, orderID string, fields map[string]any) (*models.Order, error) {
	o, err := e.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	// JSON field names arrive camelCase; storage keys are lowercase.
	normalized := make(map[string]any, len(fields))
	for k, v := range fields {
		normalized[strings.ToLower(k)] = v
	}
	fields = normalized

	if status, _ := fields["status"].(string); status == models.OrderCancelled {
		ok, err := e.Orders.Cancel(ctx, orderID, false)
		if err != nil {
			return nil, err
		}
		if ok {
			e.restoreCancelled(ctx, o)
		}
		delete(fields, "status")
	}

	// Line items, totals and ownership are immutable once placed.
	for _, k := range []string{"orderid", "userid", "items", "total", "address", "stockrestored", "createdat"} {
		delete(fields, k)
	}

	if len(fields) > 0 {
		if err := e.Orders.Update(ctx, orderID, fields); err != nil {
			return nil, err
		}
	}

	return e.Orders.Get(ctx, orderID)
}

func (e *Engine) publish(kind, productID string, delta, remaining, threshold int) {
	e.Watch.Publish(stockwatch.StockEvent{
		Type:      kind,
		ProductID: productID,
		Delta:     delta,
		Remaining: remaining,
		LowStock:  remaining <= threshold,
	})
}
