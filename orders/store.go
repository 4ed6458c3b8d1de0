package orders

import (
	"context"

	"mercato/db"
	"mercato/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The types below adapt the shared store to the narrow interfaces the
// engine consumes.

type cartStore struct{ store *db.Store }

func NewCartStore(store *db.Store) CartStore { return cartStore{store} }

func (m cartStore) Get(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := m.store.Carts.FindOne(ctx, bson.M{"userid": userID}).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (m cartStore) Clear(ctx context.Context, userID string) error {
	_, err := m.store.Carts.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}}},
	)
	return err
}

// --- CouponStore ---

type couponStore struct{ store *db.Store }

func NewCouponStore(store *db.Store) CouponStore { return couponStore{store} }

func (s couponStore) Get(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := s.store.Coupons.FindOne(ctx, bson.M{"code": code}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// --- ProductStore / AddressStore ---

type productStore struct{ store *db.Store }

func (s productStore) Get(ctx context.Context, productID string) (*models.Product, error) {
	var p models.Product
	err := s.store.Products.FindOne(ctx, bson.M{"productid": productID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type addressStore struct{ store *db.Store }

func (s addressStore) Get(ctx context.Context, addressID string) (*models.Address, error) {
	var a models.Address
	err := s.store.Addresses.FindOne(ctx, bson.M{"addressid": addressID}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func NewProductStore(store *db.Store) ProductStore { return productStore{store} }
func NewAddressStore(store *db.Store) AddressStore { return addressStore{store} }

// --- OrderStore ---

type orderStore struct{ store *db.Store }

func NewOrderStore(store *db.Store) OrderStore { return orderStore{store} }

func (s orderStore) Insert(ctx context.Context, o *models.Order) error {
	_, err := s.store.Orders.InsertOne(ctx, o)
	return err
}

func (s orderStore) Get(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	err := s.store.Orders.FindOne(ctx, bson.M{"orderid": orderID}).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Cancel performs the guarded flip. Filtering on the stockrestored flag
// makes the claim one-shot: whichever caller matches the document first is
// the only one told to restore stock.
func (s orderStore) Cancel(ctx context.Context, orderID string, requirePending bool) (bool, error) {
	filter := bson.M{
		"orderid":       orderID,
		"stockrestored": bson.M{"$ne": true},
	}
	if requirePending {
		filter["status"] = models.OrderPending
	}

	res, err := s.store.Orders.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"status": models.OrderCancelled, "stockrestored": true},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s orderStore) Update(ctx context.Context, orderID string, fields map[string]any) error {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	_, err := s.store.Orders.UpdateOne(ctx, bson.M{"orderid": orderID}, bson.M{"$set": set})
	return err
}

func (s orderStore) ListByUser(ctx context.Context, userID string, skip, limit int64) ([]models.Order, int64, error) {
	filter := bson.M{"userid": userID}

	total, err := s.store.Orders.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdat", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.store.Orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var list []models.Order
	if err := cursor.All(ctx, &list); err != nil {
		return nil, 0, err
	}
	if list == nil {
		list = []models.Order{}
	}
	return list, total, nil
}
