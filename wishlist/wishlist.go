package wishlist

import (
	"context"
	"net/http"
	"time"

	"mercato/db"
	"mercato/globals"
	"mercato/models"
	"mercato/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	store *db.Store
}

func NewHandler(store *db.Store) *Handler {
	return &Handler{store: store}
}

// getOrCreate upserts the user's wishlist so first use needs no setup call.
func (h *Handler) getOrCreate(ctx context.Context, userID string) (*models.Wishlist, error) {
	var wl models.Wishlist
	err := h.store.Wishlists.FindOneAndUpdate(ctx,
		bson.M{"userid": userID},
		bson.M{"$setOnInsert": bson.M{"userid": userID, "products": []string{}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&wl)
	if err != nil {
		return nil, err
	}
	return &wl, nil
}

// GetWishlist returns the caller's wishlist with products resolved.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	wl, err := h.getOrCreate(ctx, userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch wishlist")
		return
	}

	products := []models.Product{}
	if len(wl.Products) > 0 {
		cursor, err := h.store.Products.Find(ctx, bson.M{"productid": bson.M{"$in": wl.Products}})
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch wishlist")
			return
		}
		defer cursor.Close(ctx)
		if err := cursor.All(ctx, &products); err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch wishlist")
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"userId":   wl.UserID,
		"products": products,
	})
}

// Toggle adds the product if absent, removes it if present.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	productID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	count, err := h.store.Products.CountDocuments(ctx, bson.M{"productid": productID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}
	if count == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}

	wl, err := h.getOrCreate(ctx, userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}

	present := false
	for _, id := range wl.Products {
		if id == productID {
			present = true
			break
		}
	}

	var update bson.M
	if present {
		update = bson.M{"$pull": bson.M{"products": productID}}
	} else {
		update = bson.M{"$addToSet": bson.M{"products": productID}}
	}
	if _, err := h.store.Wishlists.UpdateOne(ctx, bson.M{"userid": userID}, update); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"productId": productID,
		"added":     !present,
	})
}

// Remove deletes the product from the wishlist regardless of presence.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	productID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	_, err := h.store.Wishlists.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$pull": bson.M{"products": productID}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Removed from wishlist"})
}
