package models

import "time"

// Product is the catalog record. Stock is mutated only through the ledger,
// avgRating/numReviews only through the review aggregator.
type Product struct {
	ProductID          string    `bson:"productid" json:"productId"`
	Name               string    `bson:"name" json:"name"`
	Description        string    `bson:"description" json:"description"`
	ActualPrice        float64   `bson:"actualprice" json:"actualPrice"`
	DiscountedPrice    float64   `bson:"discountedprice" json:"discountedPrice"`
	DiscountPercentage int       `bson:"discountpercentage" json:"discountPercentage"`
	Stock              int       `bson:"stock" json:"stock"`
	LowStockThreshold  int       `bson:"lowstockthreshold" json:"lowStockThreshold"`
	Image              string    `bson:"image,omitempty" json:"image,omitempty"`
	Thumb              string    `bson:"thumb,omitempty" json:"thumb,omitempty"`
	CategoryID         string    `bson:"categoryid" json:"categoryId"`
	AvgRating          float64   `bson:"avgrating" json:"avgRating"`
	NumReviews         int       `bson:"numreviews" json:"numReviews"`
	CreatedAt          time.Time `bson:"createdat" json:"createdAt"`
}

type Category struct {
	CategoryID string `bson:"categoryid" json:"categoryId"`
	Name       string `bson:"name" json:"name"`
}
