package coupons

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"mercato/db"
	"mercato/models"
	"mercato/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Handler struct {
	store *db.Store
}

func NewHandler(store *db.Store) *Handler {
	return &Handler{store: store}
}

// Valid reports whether a coupon may be applied at the given instant.
// Expiry is inclusive: a coupon expiring today still works today.
func Valid(c *models.Coupon, now time.Time) bool {
	if c == nil || !c.IsActive {
		return false
	}
	return !c.ExpiryDate.Before(now)
}

// Apply checks a coupon code and returns its discount. The coupon record
// is never mutated; redemption bookkeeping lives on the order.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Code        string  `json:"code"`
		OrderAmount float64 `json:"orderAmount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Coupon code is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var coupon models.Coupon
	err := h.store.Coupons.FindOne(ctx, bson.M{"code": req.Code}).Decode(&coupon)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid or expired coupon")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to look up coupon")
		return
	}

	if !Valid(&coupon, time.Now()) {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid or expired coupon")
		return
	}
	if req.OrderAmount > 0 && req.OrderAmount < coupon.MinOrderAmount {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid or expired coupon")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"code":     coupon.Code,
		"discount": coupon.Discount,
	})
}
