package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"mercato/db"
	"mercato/globals"
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

func requestUserID(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	return userID, ok
}

// GetProfile returns the account with its address book resolved.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := requestUserID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := h.store.Users.FindOne(ctx, bson.M{"userid": userID}).Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	cursor, err := h.store.Addresses.Find(ctx, bson.M{"userid": userID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}
	defer cursor.Close(ctx)

	addresses := []models.Address{}
	if err := cursor.All(ctx, &addresses); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"userId":    user.UserID,
		"name":      user.Name,
		"email":     user.Email,
		"isAdmin":   user.IsAdmin,
		"addresses": addresses,
		"createdAt": user.CreatedAt,
	})
}

type addressInput struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

func (in *addressInput) validate() string {
	for _, f := range []struct{ name, val string }{
		{"street", in.Street}, {"city", in.City}, {"state", in.State},
		{"zip", in.Zip}, {"country", in.Country},
	} {
		if strings.TrimSpace(f.val) == "" {
			return "Address " + f.name + " is required"
		}
	}
	return ""
}

// AddAddress stores a new shipping address and links it to the account.
func (h *Handler) AddAddress(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := requestUserID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input addressInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if msg := input.validate(); msg != "" {
		utils.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	addr := models.Address{
		AddressID: utils.NewID(),
		UserID:    userID,
		Street:    input.Street,
		City:      input.City,
		State:     input.State,
		Zip:       input.Zip,
		Country:   input.Country,
	}
	if _, err := h.store.Addresses.InsertOne(ctx, addr); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to add address")
		return
	}
	_, err := h.store.Users.UpdateOne(ctx, bson.M{"userid": userID},
		bson.M{"$addToSet": bson.M{"addresses": addr.AddressID}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to add address")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, addr)
}

// UpdateAddress edits an address the caller owns.
func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := requestUserID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	addressID := ps.ByName("id")

	var input addressInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if msg := input.validate(); msg != "" {
		utils.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var updated models.Address
	err := h.store.Addresses.FindOneAndUpdate(ctx,
		bson.M{"addressid": addressID, "userid": userID},
		bson.M{"$set": bson.M{
			"street": input.Street, "city": input.City, "state": input.State,
			"zip": input.Zip, "country": input.Country,
		}},
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Address not found or not yours")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update address")
		return
	}

	updated.Street, updated.City, updated.State = input.Street, input.City, input.State
	updated.Zip, updated.Country = input.Zip, input.Country
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// DeleteAddress removes an address the caller owns and unlinks it.
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := requestUserID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	addressID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.store.Addresses.DeleteOne(ctx, bson.M{"addressid": addressID, "userid": userID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete address")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Address not found or not yours")
		return
	}
	_, err = h.store.Users.UpdateOne(ctx, bson.M{"userid": userID},
		bson.M{"$pull": bson.M{"addresses": addressID}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete address")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Address deleted"})
}
