package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openward/ward-feedback-api/api/handlers"
	"github.com/openward/ward-feedback-api/databases/mocks"
	"github.com/openward/ward-feedback-api/models"
	"github.com/openward/ward-feedback-api/scope"
)

func newHouseholdHandler() (handlers.Household, *mocks.HouseholdDatabase, *mocks.ResidentDatabase) {
	householdDB := &mocks.HouseholdDatabase{}
	residentDB := &mocks.ResidentDatabase{}
	h := handlers.Household{DB: householdDB, ResDB: residentDB, Scope: scope.NewResolver()}
	return h, householdDB, residentDB
}

func storedHousehold(id primitive.ObjectID) *models.Household {
	return &models.Household{
		ID: id,
		Details: models.HouseholdDetails{
			Address: "12 Elm Street",
			GroupID: "grp-1",
			WardID:  "ward-1",
		},
	}
}

func TestHousehold_HouseholdByIDHandler(t *testing.T) {
	h, householdDB, _ := newHouseholdHandler()

	householdID := primitive.NewObjectID()
	householdDB.On("FindOne", mock.Anything, bson.M{"_id": householdID}).
		Return(storedHousehold(householdID), nil)

	citizen := models.Principal{UserID: "cit-1", Username: "joan", Role: models.RoleCitizen, ScopeID: householdID.Hex()}

	req, _ := http.NewRequest("GET", "/api/v1/households/"+householdID.Hex(), nil)
	req = mux.SetURLVars(req, map[string]string{"household_id": householdID.Hex()})
	req = withPrincipal(req, citizen)

	rr := httptest.NewRecorder()
	http.HandlerFunc(h.HouseholdByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "12 Elm Street")
}

func TestHousehold_HouseholdByIDHandlerOutOfScope(t *testing.T) {
	h, householdDB, _ := newHouseholdHandler()

	householdID := primitive.NewObjectID()
	householdDB.On("FindOne", mock.Anything, bson.M{"_id": householdID}).
		Return(storedHousehold(householdID), nil)

	req, _ := http.NewRequest("GET", "/api/v1/households/"+householdID.Hex(), nil)
	req = mux.SetURLVars(req, map[string]string{"household_id": householdID.Hex()})
	req = withPrincipal(req, citizenPrincipal)

	rr := httptest.NewRecorder()
	http.HandlerFunc(h.HouseholdByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHousehold_ResidentsByHouseholdIDHandler(t *testing.T) {
	h, householdDB, residentDB := newHouseholdHandler()

	householdID := primitive.NewObjectID()
	householdDB.On("FindOne", mock.Anything, bson.M{"_id": householdID}).
		Return(storedHousehold(householdID), nil)
	residentDB.On("Find", mock.Anything, bson.M{"resident.householdID": householdID.Hex()}, mock.Anything).
		Return([]models.Resident{
			{
				ID: primitive.NewObjectID(),
				Details: models.ResidentDetails{
					FullName:    "Joan Adeyemi",
					HouseholdID: householdID.Hex(),
				},
			},
		}, nil)

	leader := models.Principal{UserID: "ldr-1", Username: "vi", Role: models.RoleLeader, ScopeID: "grp-1"}

	req, _ := http.NewRequest("GET", "/api/v1/households/"+householdID.Hex()+"/residents", nil)
	req = mux.SetURLVars(req, map[string]string{"household_id": householdID.Hex()})
	req = withPrincipal(req, leader)

	rr := httptest.NewRecorder()
	http.HandlerFunc(h.ResidentsByHouseholdIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Joan Adeyemi")
}
