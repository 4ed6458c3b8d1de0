package models

import "time"

// Coupon is read-only from the checkout perspective; applying one never
// mutates the persisted record.
type Coupon struct {
	Code           string    `bson:"code" json:"code"`
	Discount       float64   `bson:"discount" json:"discount"`
	MinOrderAmount float64   `bson:"minorderamount" json:"minOrderAmount"`
	ExpiryDate     time.Time `bson:"expirydate" json:"expiryDate"`
	IsActive       bool      `bson:"isactive" json:"isActive"`
}

type Review struct {
	ReviewID  string    `bson:"reviewid" json:"reviewId"`
	UserID    string    `bson:"userid" json:"userId"`
	ProductID string    `bson:"productid" json:"productId"`
	Rating    int       `bson:"rating" json:"rating"`
	Comment   string    `bson:"comment" json:"comment"`
	CreatedAt time.Time `bson:"createdat" json:"createdAt"`
}
