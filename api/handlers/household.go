package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openward/ward-feedback-api/api"
	"github.com/openward/ward-feedback-api/config"
	"github.com/openward/ward-feedback-api/databases"
	"github.com/openward/ward-feedback-api/models"
	"github.com/openward/ward-feedback-api/scope"
)

// Household exported for testing purposes
type Household struct {
	DB    databases.HouseholdDatabase
	ResDB databases.ResidentDatabase
	Scope *scope.Resolver
}

// householdVisible mirrors the case visibility rules for household records:
// citizens see their own household, leaders their group, officials their
// ward, admins everything.
func householdVisible(p models.Principal, id primitive.ObjectID, details models.HouseholdDetails) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleOfficial:
		return details.WardID == p.ScopeID
	case models.RoleLeader:
		return details.GroupID == p.ScopeID
	case models.RoleCitizen:
		return id.Hex() == p.ScopeID
	}
	return false
}

// HouseholdByIDHandler returns a household by ID
func (h Household) HouseholdByIDHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	householdID := mux.Vars(r)["household_id"]

	hID, err := primitive.ObjectIDFromHex(householdID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := h.DB.FindOne(ctx, bson.M{"_id": hID})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			domainErrorStatus("failed to get household by ID", w, h.Scope.MissingErr(principal))
			return
		}
		config.ErrorStatus("failed to get household by ID", http.StatusNotFound, w, err)
		return
	}
	if !householdVisible(principal, dbResp.ID, dbResp.Details) {
		domainErrorStatus("failed to get household by ID", w, h.Scope.MissingErr(principal))
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ResidentsByHouseholdIDHandler returns all residents registered to a household
func (h Household) ResidentsByHouseholdIDHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	householdID := mux.Vars(r)["household_id"]

	hID, err := primitive.ObjectIDFromHex(householdID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	household, err := h.DB.FindOne(ctx, bson.M{"_id": hID})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			domainErrorStatus("failed to get household by ID", w, h.Scope.MissingErr(principal))
			return
		}
		config.ErrorStatus("failed to get household by ID", http.StatusNotFound, w, err)
		return
	}
	if !householdVisible(principal, household.ID, household.Details) {
		domainErrorStatus("failed to get household by ID", w, h.Scope.MissingErr(principal))
		return
	}

	dbResp, err := h.ResDB.Find(ctx,
		bson.M{"resident.householdID": hID.Hex()},
		options.Find().SetSort(bson.M{"resident.fullName": 1}))
	if err != nil {
		config.ErrorStatus("failed to get residents", http.StatusInternalServerError, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Resident{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
