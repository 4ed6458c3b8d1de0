package models

import "time"

// Order statuses. Pending is the only state a user may cancel from.
const (
	OrderPending   = "Pending"
	OrderShipped   = "Shipped"
	OrderDelivered = "Delivered"
	OrderCancelled = "Cancelled"
)

// OrderItem is immutable once the order is persisted. PriceAtOrder is the
// discounted price captured at purchase time; later catalog edits do not
// touch it.
type OrderItem struct {
	ProductID    string  `bson:"productid" json:"productId"`
	Quantity     int     `bson:"quantity" json:"quantity"`
	PriceAtOrder float64 `bson:"priceatorder" json:"priceAtOrder"`
}

// OrderAddress is a copy of the shipping address, not a reference, so later
// address edits don't rewrite order history.
type OrderAddress struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	Zip     string `bson:"zip" json:"zip"`
	Country string `bson:"country" json:"country"`
}

type Order struct {
	OrderID         string       `bson:"orderid" json:"orderId"`
	UserID          string       `bson:"userid" json:"userId"`
	Items           []OrderItem  `bson:"items" json:"items"`
	Total           float64      `bson:"total" json:"total"`
	Status          string       `bson:"status" json:"status"`
	TrackingNumber  string       `bson:"trackingnumber,omitempty" json:"trackingNumber,omitempty"`
	Address         OrderAddress `bson:"address" json:"address"`
	PaymentMethod   string       `bson:"paymentmethod" json:"paymentMethod"`
	DiscountApplied float64      `bson:"discountapplied" json:"discountApplied"`
	// StockRestored guards the cancellation path: reservations are reversed
	// at most once no matter how many times the status write is retried.
	StockRestored bool      `bson:"stockrestored" json:"-"`
	CreatedAt     time.Time `bson:"createdat" json:"createdAt"`
}

// OrderView is an order with product details resolved for the response.
type OrderView struct {
	Order
	Products map[string]Product `json:"products,omitempty"`
}
