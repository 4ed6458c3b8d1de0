package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"mercato/globals"
	"mercato/ledger"
	"mercato/models"
	"mercato/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	Engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{Engine: engine}
}

// resolveView attaches the referenced products to the response so the
// client doesn't need a fetch per line item.
func (h *Handler) resolveView(ctx context.Context, o *models.Order) models.OrderView {
	view := models.OrderView{Order: *o, Products: map[string]models.Product{}}
	for _, it := range o.Items {
		p, err := h.Engine.Products.Get(ctx, it.ProductID)
		if err != nil || p == nil {
			continue
		}
		view.Products[it.ProductID] = *p
	}
	return view
}

// POST /api/orders — body {addressId, paymentMethod, couponCode?}
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var payload struct {
		AddressID     string `json:"addressId"`
		PaymentMethod string `json:"paymentMethod"`
		CouponCode    string `json:"couponCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	userID, _ := r.Context().Value(globals.UserIDKey).(string)

	order, err := h.Engine.PlaceOrder(ctx, userID, payload.AddressID, payload.PaymentMethod, payload.CouponCode)
	if err != nil {
		var stockErr *ledger.InsufficientStockError
		switch {
		case errors.Is(err, ErrEmptyCart):
			utils.RespondWithError(w, http.StatusBadRequest, "Cart is empty")
		case errors.Is(err, ErrAddressNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Address not found or not yours")
		case errors.Is(err, ErrInvalidCoupon):
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid or expired coupon")
		case errors.As(err, &stockErr):
			utils.RespondWithError(w, http.StatusBadRequest, stockErr.Error())
		default:
			log.Println("PlaceOrder error:", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Server error placing order")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, h.resolveView(ctx, order))
}

// GET /api/orders
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, _ := r.Context().Value(globals.UserIDKey).(string)
	pg := utils.ParsePagination(r, 10, 100)

	list, total, err := h.Engine.Orders.ListByUser(ctx, userID, pg.Skip(), int64(pg.Limit))
	if err != nil {
		log.Println("GetOrders error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Server error fetching orders")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"orders":      list,
		"totalPages":  utils.TotalPages(total, pg.Limit),
		"currentPage": pg.Page,
	})
}

// PUT /api/orders/:id/cancel
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID, _ := r.Context().Value(globals.UserIDKey).(string)

	order, err := h.Engine.CancelOrder(ctx, userID, ps.ByName("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, ErrInvalidTransition):
			utils.RespondWithError(w, http.StatusBadRequest, "Cannot cancel order")
		default:
			log.Println("CancelOrder error:", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Server error cancelling order")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, h.resolveView(ctx, order))
}
