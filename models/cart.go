package models

import "time"

// CartItem is a pending line item. Quantity is always > 0; a zero or
// negative quantity removes the item instead of being stored.
type CartItem struct {
	ProductID string `bson:"productid" json:"productId"`
	Quantity  int    `bson:"quantity" json:"quantity"`
}

// Cart is unique per user and created lazily. Checkout empties Items but
// keeps the record.
type Cart struct {
	UserID    string     `bson:"userid" json:"userId"`
	Items     []CartItem `bson:"items" json:"items"`
	UpdatedAt time.Time  `bson:"updatedat" json:"updatedAt"`
}

// ResolvedCartItem pairs a line item with its current product for display.
type ResolvedCartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type CartView struct {
	UserID string             `json:"userId"`
	Items  []ResolvedCartItem `json:"items"`
}
