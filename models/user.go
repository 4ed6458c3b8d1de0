package models

import "time"

type User struct {
	UserID    string    `bson:"userid" json:"userId"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Password  string    `bson:"password" json:"-"`
	IsAdmin   bool      `bson:"isadmin" json:"isAdmin"`
	Addresses []string  `bson:"addresses" json:"addresses"`
	CreatedAt time.Time `bson:"createdat" json:"createdAt"`
}

type Address struct {
	AddressID string `bson:"addressid" json:"addressId"`
	UserID    string `bson:"userid" json:"userId"`
	Street    string `bson:"street" json:"street"`
	City      string `bson:"city" json:"city"`
	State     string `bson:"state" json:"state"`
	Zip       string `bson:"zip" json:"zip"`
	Country   string `bson:"country" json:"country"`
}

type Wishlist struct {
	UserID   string   `bson:"userid" json:"userId"`
	Products []string `bson:"products" json:"products"`
}
