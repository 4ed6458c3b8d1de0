package reviews

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"time"

	"mercato/db"
	"mercato/globals"
	"mercato/ledger"
	"mercato/models"
	"mercato/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	store  *db.Store
	ledger *ledger.Ledger
}

func NewHandler(store *db.Store, led *ledger.Ledger) *Handler {
	return &Handler{store: store, ledger: led}
}

// Aggregate computes the average rating (rounded to one decimal) and the
// review count from the full rating set.
func Aggregate(ratings []int) (avg float64, count int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg = float64(sum) / float64(len(ratings))
	return math.Round(avg*10) / 10, len(ratings)
}

// AddReview stores a review and recomputes the product's rating summary
// from the complete review set. One review per user per product: a repeat
// submission replaces the earlier one.
func (h *Handler) AddReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	productID := ps.ByName("id")

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		utils.RespondWithError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	count, err := h.store.Products.CountDocuments(ctx, bson.M{"productid": productID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to add review")
		return
	}
	if count == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}

	review := models.Review{
		ReviewID:  utils.NewID(),
		UserID:    userID,
		ProductID: productID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now(),
	}
	_, err = h.store.Reviews.UpdateOne(ctx,
		bson.M{"userid": userID, "productid": productID},
		bson.M{"$set": review},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to add review")
		return
	}

	if err := h.recompute(ctx, productID); err != nil {
		// The review is stored; the summary catches up on the next one.
		log.Printf("reviews: recompute for %s failed: %v", productID, err)
	}

	utils.RespondWithJSON(w, http.StatusCreated, review)
}

// recompute derives avgRating and numReviews from every review of the
// product, never incrementally.
func (h *Handler) recompute(ctx context.Context, productID string) error {
	cursor, err := h.store.Reviews.Find(ctx, bson.M{"productid": productID})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var ratings []int
	for cursor.Next(ctx) {
		var rev models.Review
		if err := cursor.Decode(&rev); err != nil {
			return err
		}
		ratings = append(ratings, rev.Rating)
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	avg, count := Aggregate(ratings)
	return h.ledger.ApplyRating(ctx, productID, avg, count)
}

// GetReviews lists a product's reviews, newest first.
func (h *Handler) GetReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := h.store.Reviews.Find(ctx, bson.M{"productid": productID},
		options.Find().SetSort(bson.M{"createdat": -1}))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch reviews")
		return
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch reviews")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, reviews)
}

// DeleteReview removes a review (admin moderation path) and recomputes
// the product summary.
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reviewID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var review models.Review
	err := h.store.Reviews.FindOneAndDelete(ctx, bson.M{"reviewid": reviewID}).Decode(&review)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Review not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete review")
		return
	}

	if err := h.recompute(ctx, review.ProductID); err != nil {
		log.Printf("reviews: recompute for %s failed: %v", review.ProductID, err)
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Review deleted"})
}
