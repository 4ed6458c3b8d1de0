package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"mercato/filemgr"
	"mercato/ledger"
	"mercato/models"
	"mercato/stockwatch"
	"mercato/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productInput struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	ActualPrice       float64 `json:"actualPrice"`
	DiscountedPrice   float64 `json:"discountedPrice"`
	Stock             int     `json:"stock"`
	LowStockThreshold int     `json:"lowStockThreshold"`
	CategoryID        string  `json:"categoryId"`
}

// CreateProduct validates pricing, derives the discount percentage, and
// stores the product. A zero discounted price means no discount.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input productInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Product name is required")
		return
	}
	if input.Stock < 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Stock cannot be negative")
		return
	}
	if input.DiscountedPrice == 0 {
		input.DiscountedPrice = input.ActualPrice
	}
	if err := ledger.ValidatePricing(input.ActualPrice, input.DiscountedPrice); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid pricing")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if input.CategoryID != "" {
		count, err := h.store.Categories.CountDocuments(ctx, bson.M{"categoryid": input.CategoryID})
		if err != nil || count == 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Category not found")
			return
		}
	}

	product := models.Product{
		ProductID:          utils.NewID(),
		Name:               input.Name,
		Description:        input.Description,
		ActualPrice:        input.ActualPrice,
		DiscountedPrice:    input.DiscountedPrice,
		DiscountPercentage: ledger.DiscountPercent(input.ActualPrice, input.DiscountedPrice),
		Stock:              input.Stock,
		LowStockThreshold:  input.LowStockThreshold,
		CategoryID:         input.CategoryID,
		CreatedAt:          time.Now(),
	}
	if _, err := h.store.Products.InsertOne(ctx, product); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct merges pricing, stock and descriptive fields. Pricing is
// revalidated against the merged values and the discount percentage is
// recomputed, never accepted from the client.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("id")

	var input map[string]any
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var current models.Product
	err := h.store.Products.FindOne(ctx, bson.M{"productid": productID}).Decode(&current)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	fields := bson.M{}
	if v, ok := input["name"].(string); ok && strings.TrimSpace(v) != "" {
		fields["name"] = strings.TrimSpace(v)
	}
	if v, ok := input["description"].(string); ok {
		fields["description"] = v
	}
	if v, ok := input["categoryId"].(string); ok {
		fields["categoryid"] = v
	}
	if v, ok := input["lowStockThreshold"].(float64); ok {
		fields["lowstockthreshold"] = int(v)
	}

	actual, discounted := current.ActualPrice, current.DiscountedPrice
	repriced := false
	if v, ok := input["actualPrice"].(float64); ok {
		actual, repriced = v, true
	}
	if v, ok := input["discountedPrice"].(float64); ok {
		discounted, repriced = v, true
	}
	if repriced {
		if err := ledger.ValidatePricing(actual, discounted); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid pricing")
			return
		}
		fields["actualprice"] = actual
		fields["discountedprice"] = discounted
		fields["discountpercentage"] = ledger.DiscountPercent(actual, discounted)
	}

	if v, ok := input["stock"].(float64); ok {
		if v < 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Stock cannot be negative")
			return
		}
		fields["stock"] = int(v)
	}

	if len(fields) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "No updatable fields")
		return
	}

	var updated models.Product
	err = h.store.Products.FindOneAndUpdate(ctx,
		bson.M{"productid": productID},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	if newStock, ok := fields["stock"].(int); ok && newStock != current.Stock {
		h.watch.Publish(stockEvent(updated, newStock-current.Stock))
	}

	utils.RespondWithJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var product models.Product
	err := h.store.Products.FindOneAndDelete(ctx, bson.M{"productid": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	filemgr.RemoveProductImage(product.Image)
	// Drop the product from every cart and wishlist so stale lines don't
	// surface at checkout.
	h.store.Carts.UpdateMany(ctx, bson.M{}, bson.M{"$pull": bson.M{"items": bson.M{"productid": productID}}})
	h.store.Wishlists.UpdateMany(ctx, bson.M{}, bson.M{"$pull": bson.M{"products": productID}})
	h.store.Reviews.DeleteMany(ctx, bson.M{"productid": productID})

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Product deleted"})
}

// UploadProductImage accepts a multipart image and replaces the product's
// image and thumbnail.
func (h *Handler) UploadProductImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var current models.Product
	err := h.store.Products.FindOne(ctx, bson.M{"productid": productID}).Decode(&current)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	imagePath, thumbPath, err := filemgr.SaveProductImage(r, "image")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid image upload")
		return
	}

	_, err = h.store.Products.UpdateOne(ctx,
		bson.M{"productid": productID},
		bson.M{"$set": bson.M{"image": imagePath, "thumb": thumbPath}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	filemgr.RemoveProductImage(current.Image)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"image": imagePath,
		"thumb": thumbPath,
	})
}

func stockEvent(p models.Product, delta int) stockwatch.StockEvent {
	return stockwatch.StockEvent{
		Type:      "adjusted",
		ProductID: p.ProductID,
		Delta:     delta,
		Remaining: p.Stock,
		LowStock:  p.Stock <= p.LowStockThreshold,
	}
}
