// Package ledger owns the two product fields nothing else may write
// directly: the stock counter and the denormalized rating pair. Stock moves
// only through atomic conditional updates so concurrent checkouts can never
// drive it negative.
package ledger

import (
	"context"
	"fmt"

	"mercato/db"
	"mercato/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsufficientStockError names the offending product so callers can surface
// a useful message.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d", name, e.Available, e.Requested)
}

type Ledger struct {
	products *mongo.Collection
}

func New(store *db.Store) *Ledger {
	return &Ledger{products: store.Products}
}

// ReserveStock decrements a product's stock by qty, but only if the current
// stock covers it. The guard and the decrement are a single conditional
// update, never a read followed by a write. Returns the remaining stock.
func (l *Ledger) ReserveStock(ctx context.Context, productID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("invalid quantity %d", qty)
	}

	var updated models.Product
	err := l.products.FindOneAndUpdate(ctx,
		bson.M{"productid": productID, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)

	if err == mongo.ErrNoDocuments {
		// Either the product is gone or the stock ran short; fetch it to
		// tell the two apart and name it in the error.
		var p models.Product
		if ferr := l.products.FindOne(ctx, bson.M{"productid": productID}).Decode(&p); ferr != nil {
			return 0, fmt.Errorf("product %s not found", productID)
		}
		return p.Stock, &InsufficientStockError{ProductID: productID, Name: p.Name, Available: p.Stock, Requested: qty}
	}
	if err != nil {
		return 0, err
	}
	return updated.Stock, nil
}

// RestoreStock reverses a prior reservation. Restoration is trusted: it is
// only ever sourced from the order workflow, so there is no upper bound.
func (l *Ledger) RestoreStock(ctx context.Context, productID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("invalid quantity %d", qty)
	}

	var updated models.Product
	err := l.products.FindOneAndUpdate(ctx,
		bson.M{"productid": productID},
		bson.M{"$inc": bson.M{"stock": qty}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return 0, err
	}
	return updated.Stock, nil
}

// ApplyRating writes the recomputed aggregate for a product. Only the
// review aggregator calls this.
func (l *Ledger) ApplyRating(ctx context.Context, productID string, avg float64, count int) error {
	_, err := l.products.UpdateOne(ctx,
		bson.M{"productid": productID},
		bson.M{"$set": bson.M{"avgrating": avg, "numreviews": count}},
	)
	return err
}
