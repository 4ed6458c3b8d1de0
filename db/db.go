package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store bundles the MongoDB client and the collections the handlers work
// with. It is created once at startup and passed to whoever needs it; its
// lifetime matches the process.
type Store struct {
	Client *mongo.Client

	Users      *mongo.Collection
	Addresses  *mongo.Collection
	Categories *mongo.Collection
	Products   *mongo.Collection
	Carts      *mongo.Collection
	Orders     *mongo.Collection
	Coupons    *mongo.Collection
	Reviews    *mongo.Collection
	Wishlists  *mongo.Collection
}

func Connect(ctx context.Context, uri string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	d := client.Database("shopdb")
	return &Store{
		Client:     client,
		Users:      d.Collection("users"),
		Addresses:  d.Collection("addresses"),
		Categories: d.Collection("categories"),
		Products:   d.Collection("products"),
		Carts:      d.Collection("carts"),
		Orders:     d.Collection("orders"),
		Coupons:    d.Collection("coupons"),
		Reviews:    d.Collection("reviews"),
		Wishlists:  d.Collection("wishlists"),
	}, nil
}

func (s *Store) Disconnect(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the workflows rely on: one cart and one
// wishlist per user, unique coupon codes and user emails, plus the product
// lookups the catalog serves.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.Users, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		{s.Carts, mongo.IndexModel{Keys: bson.D{{Key: "userid", Value: 1}}, Options: unique}},
		{s.Wishlists, mongo.IndexModel{Keys: bson.D{{Key: "userid", Value: 1}}, Options: unique}},
		{s.Coupons, mongo.IndexModel{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique}},
		{s.Products, mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}}},
		{s.Products, mongo.IndexModel{Keys: bson.D{{Key: "categoryid", Value: 1}}}},
		{s.Orders, mongo.IndexModel{Keys: bson.D{{Key: "userid", Value: 1}, {Key: "createdat", Value: -1}}}},
		{s.Reviews, mongo.IndexModel{Keys: bson.D{{Key: "productid", Value: 1}}}},
		{s.Reviews, mongo.IndexModel{Keys: bson.D{{Key: "userid", Value: 1}, {Key: "productid", Value: 1}}, Options: unique}},
	}

	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateOne(ctx, ix.model); err != nil {
			return err
		}
	}
	return nil
}
