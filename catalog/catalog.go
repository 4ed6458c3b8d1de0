package catalog

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"mercato/db"
	"mercato/models"
	"mercato/rdx"
	"mercato/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recommendationsTTL = 5 * time.Minute

type Handler struct {
	store *db.Store
	cache *rdx.Cache
}

func NewHandler(store *db.Store, cache *rdx.Cache) *Handler {
	return &Handler{store: store, cache: cache}
}

// GetCategories lists every category.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := h.store.Categories.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	defer cursor.Close(ctx)

	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, categories)
}

// GetProductsByCategory pages through a category's products. The category
// is looked up by name, case-insensitively.
func (h *Handler) GetProductsByCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var category models.Category
	err := h.store.Categories.FindOne(ctx, bson.M{
		"name": bson.M{"$regex": "^" + regexp.QuoteMeta(name) + "$", "$options": "i"},
	}).Decode(&category)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Category '"+name+"' not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}

	pg := utils.ParsePagination(r, 20, 100)
	filter := bson.M{"categoryid": category.CategoryID}

	total, err := h.store.Products.CountDocuments(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}

	cursor, err := h.store.Products.Find(ctx, filter,
		options.Find().SetSort(bson.M{"createdat": -1}).SetSkip(pg.Skip()).SetLimit(int64(pg.Limit)))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"category":    category,
		"products":    products,
		"totalPages":  utils.TotalPages(total, pg.Limit),
		"currentPage": pg.Page,
	})
}

// GetProduct returns one product with its reviews attached.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var product models.Product
	err := h.store.Products.FindOne(ctx, bson.M{"productid": productID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}

	cursor, err := h.store.Reviews.Find(ctx, bson.M{"productid": productID},
		options.Find().SetSort(bson.M{"createdat": -1}))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"product": product,
		"reviews": reviews,
	})
}

// SearchProducts matches the query against names and descriptions,
// case-insensitively.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Search query is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pattern := bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}
	pg := utils.ParsePagination(r, 20, 100)

	cursor, err := h.store.Products.Find(ctx,
		bson.M{"$or": []bson.M{{"name": pattern}, {"description": pattern}}},
		options.Find().SetSkip(pg.Skip()).SetLimit(int64(pg.Limit)))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, products)
}

// GetRecommendations serves the highest-rated in-stock products, cached
// for a few minutes since the ranking changes slowly.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	const cacheKey = "recommendations"
	var cached []models.Product
	if ok, err := h.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
		utils.RespondWithJSON(w, http.StatusOK, cached)
		return
	}

	cursor, err := h.store.Products.Find(ctx,
		bson.M{"stock": bson.M{"$gt": 0}},
		options.Find().
			SetSort(bson.D{{Key: "avgrating", Value: -1}, {Key: "numreviews", Value: -1}}).
			SetLimit(10))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch recommendations")
		return
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch recommendations")
		return
	}

	if err := h.cache.SetJSON(ctx, cacheKey, products, recommendationsTTL); err != nil {
		log.Printf("catalog: recommendations cache write failed: %v", err)
	}
	utils.RespondWithJSON(w, http.StatusOK, products)
}
