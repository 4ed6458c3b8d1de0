package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"mercato/db"
	"mercato/globals"
	"mercato/models"
	"mercato/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrProductNotFound = errors.New("product not found")

// OutOfStockError carries what the shopper needs to hear: the product name
// and how many are actually left.
type OutOfStockError struct {
	Name      string
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("Only %d %s available in stock", e.Available, e.Name)
}

type Handler struct {
	store *db.Store
}

func NewHandler(store *db.Store) *Handler {
	return &Handler{store: store}
}

// getOrCreate returns the user's cart, creating an empty one on first
// access. The upsert makes it idempotent under concurrent first requests.
func (h *Handler) getOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := h.store.Carts.FindOneAndUpdate(ctx,
		bson.M{"userid": userID},
		bson.M{"$setOnInsert": bson.M{"userid": userID, "items": []models.CartItem{}, "updatedat": time.Now()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&cart)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// upsertItem sets the quantity for a product line. Quantity <= 0 removes
// the line. The stock comparison here is a display-level courtesy; the
// authoritative check happens at reservation time during checkout.
func (h *Handler) upsertItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	var product models.Product
	err := h.store.Products.FindOne(ctx, bson.M{"productid": productID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, &OutOfStockError{Name: product.Name, Available: product.Stock}
	}

	cart, err := h.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]models.CartItem, 0, len(cart.Items)+1)
	replaced := false
	for _, it := range cart.Items {
		if it.ProductID == productID {
			replaced = true
			if quantity > 0 {
				items = append(items, models.CartItem{ProductID: productID, Quantity: quantity})
			}
			continue
		}
		items = append(items, it)
	}
	if !replaced && quantity > 0 {
		items = append(items, models.CartItem{ProductID: productID, Quantity: quantity})
	}

	// Last write wins; cart mutations for one user aren't expected to race.
	_, err = h.store.Carts.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{"items": items, "updatedat": time.Now()}},
	)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

// resolve attaches current product documents for display.
func (h *Handler) resolve(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	view := &models.CartView{UserID: cart.UserID, Items: []models.ResolvedCartItem{}}
	for _, it := range cart.Items {
		var product models.Product
		err := h.store.Products.FindOne(ctx, bson.M{"productid": it.ProductID}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			continue // product deleted since it was added
		}
		if err != nil {
			return nil, err
		}
		view.Items = append(view.Items, models.ResolvedCartItem{Product: product, Quantity: it.Quantity})
	}
	return view, nil
}

// GET /api/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, _ := r.Context().Value(globals.UserIDKey).(string)

	cart, err := h.getOrCreate(ctx, userID)
	if err != nil {
		log.Println("GetCart error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not retrieve cart")
		return
	}

	view, err := h.resolve(ctx, cart)
	if err != nil {
		log.Println("GetCart resolve error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not retrieve cart")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, view)
}

// PUT /api/cart — body {productId, quantity}
func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var payload struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ProductID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	userID, _ := r.Context().Value(globals.UserIDKey).(string)

	cart, err := h.upsertItem(ctx, userID, payload.ProductID, payload.Quantity)
	if err != nil {
		if oos, ok := err.(*OutOfStockError); ok {
			utils.RespondWithError(w, http.StatusBadRequest, oos.Error())
			return
		}
		if errors.Is(err, ErrProductNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Println("UpdateCart error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update cart")
		return
	}

	view, err := h.resolve(ctx, cart)
	if err != nil {
		log.Println("UpdateCart resolve error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update cart")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, view)
}
