package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"organic-grocery/middleware"
	"organic-grocery/models"
	"organic-grocery/utils"
)

// AddressController manages the per-user address book. Addresses live
// inside the user document, so every mutation below is one atomic write of
// the addresses array and the one-default invariant survives concurrent
// requests.
type AddressController struct {
	Users *mongo.Collection
}

// NewAddressController creates a new AddressController.
func NewAddressController(client *mongo.Client, dbName string) *AddressController {
	return &AddressController{Users: client.Database(dbName).Collection("users")}
}

type coordinatesRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type createAddressRequest struct {
	Name        string             `json:"name" validate:"required,min=1"`
	Street      string             `json:"street" validate:"required,min=5"`
	City        string             `json:"city" validate:"required,min=1"`
	State       string             `json:"state" validate:"required,min=1"`
	PostalCode  string             `json:"postalCode" validate:"required,min=3"`
	Country     string             `json:"country" validate:"required,min=1"`
	Coordinates coordinatesRequest `json:"coordinates" validate:"required"`
	IsDefault   bool               `json:"isDefault"`
}

type updateAddressRequest struct {
	Name        *string             `json:"name" validate:"omitempty,min=1"`
	Street      *string             `json:"street" validate:"omitempty,min=5"`
	City        *string             `json:"city" validate:"omitempty,min=1"`
	State       *string             `json:"state" validate:"omitempty,min=1"`
	PostalCode  *string             `json:"postalCode" validate:"omitempty,min=3"`
	Country     *string             `json:"country" validate:"omitempty,min=1"`
	Coordinates *coordinatesRequest `json:"coordinates"`
	IsDefault   *bool               `json:"isDefault"`
}

// ListAddresses returns the caller's addresses, default first, then newest
// first.
func (ac *AddressController) ListAddresses(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	addresses := make([]models.Address, len(user.Addresses))
	copy(addresses, user.Addresses)
	sort.SliceStable(addresses, func(i, j int) bool {
		if addresses[i].IsDefault != addresses[j].IsDefault {
			return addresses[i].IsDefault
		}
		return addresses[i].CreatedAt.After(addresses[j].CreatedAt)
	})

	utils.RespondJSON(w, http.StatusOK, addresses)
}

// GetAddress returns a single address owned by the caller.
func (ac *AddressController) GetAddress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	addressID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid address ID")
		return
	}

	address := user.FindAddress(addressID)
	if address == nil {
		utils.RespondError(w, http.StatusNotFound, "Address not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, address)
}

// CreateAddress validates and adds a new address. The first address for a
// user, or an explicitly requested default, becomes the sole default.
func (ac *AddressController) CreateAddress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.RespondValidationErrors(w, err)
		return
	}

	address := user.AddAddress(models.Address{
		Name:        req.Name,
		Street:      req.Street,
		City:        req.City,
		State:       req.State,
		PostalCode:  req.PostalCode,
		Country:     req.Country,
		Coordinates: models.Coordinates{Lat: req.Coordinates.Lat, Lng: req.Coordinates.Lng},
		IsDefault:   req.IsDefault,
	}, time.Now())

	if err := ac.saveAddresses(r.Context(), user); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, address)
}

// UpdateAddress applies a partial update to an address owned by the caller.
// Setting isDefault demotes every other address in the same write.
func (ac *AddressController) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	addressID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid address ID")
		return
	}

	var req updateAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.RespondValidationErrors(w, err)
		return
	}

	address := user.FindAddress(addressID)
	if address == nil {
		utils.RespondError(w, http.StatusNotFound, "Address not found")
		return
	}

	if req.Name != nil {
		address.Name = *req.Name
	}
	if req.Street != nil {
		address.Street = *req.Street
	}
	if req.City != nil {
		address.City = *req.City
	}
	if req.State != nil {
		address.State = *req.State
	}
	if req.PostalCode != nil {
		address.PostalCode = *req.PostalCode
	}
	if req.Country != nil {
		address.Country = *req.Country
	}
	if req.Coordinates != nil {
		address.Coordinates = models.Coordinates{Lat: req.Coordinates.Lat, Lng: req.Coordinates.Lng}
	}
	address.UpdatedAt = time.Now()
	if req.IsDefault != nil && *req.IsDefault {
		user.SetDefaultAddress(addressID)
	}

	if err := ac.saveAddresses(r.Context(), user); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, address)
}

// DeleteAddress removes an address. Deleting the default promotes the most
// recently created remaining address.
func (ac *AddressController) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	addressID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid address ID")
		return
	}

	if !user.RemoveAddress(addressID) {
		utils.RespondError(w, http.StatusNotFound, "Address not found")
		return
	}

	if err := ac.saveAddresses(r.Context(), user); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondMessage(w, "Address deleted successfully")
}

// SetDefaultAddress promotes an address to the sole default.
func (ac *AddressController) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	addressID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid address ID")
		return
	}

	if !user.SetDefaultAddress(addressID) {
		utils.RespondError(w, http.StatusNotFound, "Address not found")
		return
	}

	if err := ac.saveAddresses(r.Context(), user); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, user.FindAddress(addressID))
}

func (ac *AddressController) saveAddresses(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	update := bson.M{"$set": bson.M{
		"addresses":  user.Addresses,
		"updated_at": time.Now(),
	}}
	_, err := ac.Users.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	return err
}
