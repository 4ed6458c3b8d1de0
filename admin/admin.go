// Package admin holds the management surface: category, product, coupon
// and user CRUD, plus the order oversight endpoints. Every route here is
// mounted behind the admin middleware.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"mercato/db"
	"mercato/models"
	"mercato/orders"
	"mercato/stockwatch"
	"mercato/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	store  *db.Store
	engine *orders.Engine
	watch  *stockwatch.Hub
}

func NewHandler(store *db.Store, engine *orders.Engine, watch *stockwatch.Hub) *Handler {
	return &Handler{store: store, engine: engine, watch: watch}
}

// --- categories ---

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || strings.TrimSpace(input.Name) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Category name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	category := models.Category{
		CategoryID: utils.NewID(),
		Name:       strings.TrimSpace(input.Name),
	}
	if _, err := h.store.Categories.InsertOne(ctx, category); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || strings.TrimSpace(input.Name) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Category name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.store.Categories.UpdateOne(ctx,
		bson.M{"categoryid": ps.ByName("id")},
		bson.M{"$set": bson.M{"name": strings.TrimSpace(input.Name)}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update category")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Category not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Category updated"})
}

// DeleteCategory refuses while products still reference the category.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	categoryID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	inUse, err := h.store.Products.CountDocuments(ctx, bson.M{"categoryid": categoryID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete category")
		return
	}
	if inUse > 0 {
		utils.RespondWithError(w, http.StatusConflict, "Category still has products")
		return
	}

	res, err := h.store.Categories.DeleteOne(ctx, bson.M{"categoryid": categoryID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete category")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Category not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Category deleted"})
}

// --- users ---

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pg := utils.ParsePagination(r, 20, 100)

	total, err := h.store.Users.CountDocuments(ctx, bson.M{})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	cursor, err := h.store.Users.Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"createdat": -1}).SetSkip(pg.Skip()).SetLimit(int64(pg.Limit)))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"users":       users,
		"totalPages":  utils.TotalPages(total, pg.Limit),
		"currentPage": pg.Page,
	})
}

func (h *Handler) SetUserAdmin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input struct {
		IsAdmin bool `json:"isAdmin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.store.Users.UpdateOne(ctx,
		bson.M{"userid": ps.ByName("id")},
		bson.M{"$set": bson.M{"isadmin": input.IsAdmin}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "User updated"})
}

// DeleteUser removes the account and its per-user documents. Orders stay
// for bookkeeping.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.store.Users.DeleteOne(ctx, bson.M{"userid": userID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	for _, coll := range []*mongo.Collection{h.store.Carts, h.store.Wishlists, h.store.Addresses} {
		if _, err := coll.DeleteMany(ctx, bson.M{"userid": userID}); err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete user data")
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "User deleted"})
}

// --- coupons ---

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var coupon models.Coupon
	if err := json.NewDecoder(r.Body).Decode(&coupon); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	if coupon.Code == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Coupon code is required")
		return
	}
	if coupon.Discount <= 0 || coupon.Discount > 100 {
		utils.RespondWithError(w, http.StatusBadRequest, "Discount must be between 1 and 100")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := h.store.Coupons.InsertOne(ctx, coupon); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(w, http.StatusConflict, "Coupon code already exists")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create coupon")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, coupon)
}

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := h.store.Coupons.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"expirydate": 1}))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch coupons")
		return
	}
	defer cursor.Close(ctx)

	coupons := []models.Coupon{}
	if err := cursor.All(ctx, &coupons); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch coupons")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, coupons)
}

func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input map[string]any
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	delete(input, "code") // codes are immutable

	fields := bson.M{}
	for jsonKey, bsonKey := range map[string]string{
		"discount":       "discount",
		"minOrderAmount": "minorderamount",
		"isActive":       "isactive",
	} {
		if v, ok := input[jsonKey]; ok {
			fields[bsonKey] = v
		}
	}
	if v, ok := input["expiryDate"].(string); ok {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid expiry date")
			return
		}
		fields["expirydate"] = t
	}
	if len(fields) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "No updatable fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.store.Coupons.UpdateOne(ctx,
		bson.M{"code": strings.ToUpper(ps.ByName("code"))},
		bson.M{"$set": fields})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update coupon")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Coupon not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Coupon updated"})
}

func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.store.Coupons.DeleteOne(ctx, bson.M{"code": strings.ToUpper(ps.ByName("code"))})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete coupon")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Coupon not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Coupon deleted"})
}

// --- orders ---

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pg := utils.ParsePagination(r, 20, 100)
	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	total, err := h.store.Orders.CountDocuments(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}

	cursor, err := h.store.Orders.Find(ctx, filter,
		options.Find().SetSort(bson.M{"createdat": -1}).SetSkip(pg.Skip()).SetLimit(int64(pg.Limit)))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	defer cursor.Close(ctx)

	orderList := []models.Order{}
	if err := cursor.All(ctx, &orderList); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"orders":      orderList,
		"totalPages":  utils.TotalPages(total, pg.Limit),
		"currentPage": pg.Page,
	})
}

// UpdateOrder routes through the workflow engine so a status change to
// Cancelled restores stock with the same guarantees as a user cancel.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	updated, err := h.engine.AdminUpdate(ctx, ps.ByName("id"), fields)
	if err == orders.ErrOrderNotFound {
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// DeleteOrder removes an order record outright. Stock is not touched:
// deletion is bookkeeping cleanup, not a cancellation.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.store.Orders.DeleteOne(ctx, bson.M{"orderid": ps.ByName("id")})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete order")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Order deleted"})
}
