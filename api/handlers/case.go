package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/openward/ward-feedback-api/api"
	"github.com/openward/ward-feedback-api/audit"
	"github.com/openward/ward-feedback-api/config"
	"github.com/openward/ward-feedback-api/databases"
	"github.com/openward/ward-feedback-api/lifecycle"
	"github.com/openward/ward-feedback-api/models"
	"github.com/openward/ward-feedback-api/scope"
)

// Case exported for testing purposes
type Case struct {
	DB        databases.CaseDatabase
	RDB       databases.CaseResponseDatabase
	HDB       databases.HouseholdDatabase
	ResDB     databases.ResidentDatabase
	Scope     *scope.Resolver
	Audit     *audit.Recorder
	Txn       databases.TransactionRunner
	Lifecycle *lifecycle.Engine
}

// createCaseRequest is the request body for creating a case. Exactly one of
// ReporterResidentID and ReporterName must be set.
type createCaseRequest struct {
	Content            string `json:"content"`
	Category           string `json:"category"`
	ReporterResidentID string `json:"reporterResidentID"`
	ReporterName       string `json:"reporterName"`
	HouseholdID        string `json:"householdID"`
}

// CaseHandler returns the cases visible to the caller, newest first
func (c Case) CaseHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	status := r.URL.Query().Get("status")
	category := r.URL.Query().Get("category")
	search := r.URL.Query().Get("q")
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || Limit <= 0 {
		Limit = 10
	}
	limit64 := int64(Limit)
	Page := getPage(Page, r)
	skip64 := int64(Page * Limit)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := c.Scope.ScopedFilter(principal)
	if status != "" {
		filter["case.status"] = status
	}
	if category != "" {
		filter["case.category"] = category
	}
	if search != "" {
		filter["case.content"] = bson.M{"$regex": search, "$options": "i"}
	}
	if createdRange := dateRangeFilter(r); createdRange != nil {
		filter["case.createdAt"] = createdRange
	}

	opts := options.Find().
		SetLimit(limit64).
		SetSkip(skip64).
		SetSort(bson.M{"_id": -1})

	type findResult struct {
		cases []models.Case
		err   error
	}
	type countResult struct {
		count int64
		err   error
	}

	findChan := make(chan findResult, 1)
	countChan := make(chan countResult, 1)

	go func() {
		cases, err := c.DB.Find(ctx, filter, opts)
		findChan <- findResult{cases: cases, err: err}
	}()

	go func() {
		count, err := c.DB.CountDocuments(ctx, filter)
		countChan <- countResult{count: count, err: err}
	}()

	findRes := <-findChan
	countRes := <-countChan

	if findRes.err != nil {
		config.ErrorStatus("failed to get cases", http.StatusNotFound, w, findRes.err)
		return
	}

	dbResp := findRes.cases
	var totalCount int64
	if countRes.err != nil {
		totalCount = int64(len(dbResp))
	} else {
		totalCount = countRes.count
	}

	if len(dbResp) == 0 {
		dbResp = []models.Case{}
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(Limit)))

	response := map[string]interface{}{
		"data":       dbResp,
		"page":       Page,
		"limit":      Limit,
		"totalCount": totalCount,
		"totalPages": totalPages,
	}

	b, err := json.Marshal(response)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CaseByIDHandler returns a case with its merged children and agency responses
func (c Case) CaseByIDHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	caseID := mux.Vars(r)["case_id"]
	zap.S().Debugf("case_id: %v", caseID)

	cID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.FindOne(ctx, bson.M{"_id": cID})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			domainErrorStatus("failed to get case by ID", w, c.Scope.MissingErr(principal))
			return
		}
		config.ErrorStatus("failed to get case by ID", http.StatusNotFound, w, err)
		return
	}
	if !c.Scope.Visible(principal, dbResp.Details) {
		domainErrorStatus("failed to get case by ID", w, c.Scope.MissingErr(principal))
		return
	}

	type childrenResult struct {
		children []models.Case
		err      error
	}
	type responsesResult struct {
		responses []models.CaseResponse
		err       error
	}

	childrenChan := make(chan childrenResult, 1)
	responsesChan := make(chan responsesResult, 1)

	go func() {
		children, err := c.DB.Find(ctx,
			bson.M{"case.parentID": cID.Hex()},
			options.Find().SetSort(bson.M{"case.createdAt": 1}))
		childrenChan <- childrenResult{children: children, err: err}
	}()

	go func() {
		responses, err := c.RDB.Find(ctx,
			bson.M{"response.caseID": cID.Hex()},
			options.Find().SetSort(bson.M{"_id": 1}))
		responsesChan <- responsesResult{responses: responses, err: err}
	}()

	childrenRes := <-childrenChan
	responsesRes := <-responsesChan

	if childrenRes.err != nil {
		config.ErrorStatus("failed to get merged children", http.StatusInternalServerError, w, childrenRes.err)
		return
	}
	if responsesRes.err != nil {
		config.ErrorStatus("failed to get case responses", http.StatusInternalServerError, w, responsesRes.err)
		return
	}

	children := childrenRes.children
	if len(children) == 0 {
		children = []models.Case{}
	}
	responses := responsesRes.responses
	if len(responses) == 0 {
		responses = []models.CaseResponse{}
	}

	b, err := json.Marshal(map[string]interface{}{
		"case":      dbResp,
		"children":  children,
		"responses": responses,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CreateCaseHandler files a new feedback case
func (c Case) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if err := c.Scope.Authorize(principal, scope.ActionCreateCase); err != nil {
		domainErrorStatus("failed to create case", w, err)
		return
	}

	if req.Content == "" {
		domainErrorStatus("failed to create case", w, fmt.Errorf("content must not be empty: %w", models.ErrValidation))
		return
	}
	if !models.ValidCategory(req.Category) {
		domainErrorStatus("failed to create case", w, fmt.Errorf("unknown category %q: %w", req.Category, models.ErrValidation))
		return
	}
	if (req.ReporterResidentID == "") == (req.ReporterName == "") {
		domainErrorStatus("failed to create case", w, fmt.Errorf("exactly one of reporterResidentID and reporterName must be set: %w", models.ErrValidation))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	householdID := req.HouseholdID

	if req.ReporterResidentID != "" {
		rID, err := primitive.ObjectIDFromHex(req.ReporterResidentID)
		if err != nil {
			domainErrorStatus("failed to create case", w, fmt.Errorf("malformed reporterResidentID: %w", models.ErrValidation))
			return
		}
		resident, err := c.ResDB.FindOne(ctx, bson.M{"_id": rID})
		if err != nil {
			domainErrorStatus("failed to create case", w, fmt.Errorf("unknown reporter resident: %w", models.ErrValidation))
			return
		}
		if householdID == "" {
			householdID = resident.Details.HouseholdID
		}
	}

	// Citizens always file against their own household.
	if principal.Role == models.RoleCitizen {
		if householdID != "" && householdID != principal.ScopeID {
			domainErrorStatus("failed to create case", w, fmt.Errorf("citizen may only file for their own household: %w", models.ErrForbidden))
			return
		}
		householdID = principal.ScopeID
	}
	if householdID == "" {
		domainErrorStatus("failed to create case", w, fmt.Errorf("householdID must be set: %w", models.ErrValidation))
		return
	}

	hID, err := primitive.ObjectIDFromHex(householdID)
	if err != nil {
		domainErrorStatus("failed to create case", w, fmt.Errorf("malformed householdID: %w", models.ErrValidation))
		return
	}
	household, err := c.HDB.FindOne(ctx, bson.M{"_id": hID})
	if err != nil {
		domainErrorStatus("failed to create case", w, fmt.Errorf("unknown household: %w", models.ErrValidation))
		return
	}
	if principal.Role == models.RoleLeader && household.Details.GroupID != principal.ScopeID {
		domainErrorStatus("failed to create case", w, fmt.Errorf("household is outside the leader's group: %w", models.ErrForbidden))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	newCase := models.Case{
		ID: primitive.NewObjectID(),
		Details: models.CaseDetails{
			Content:            req.Content,
			Category:           req.Category,
			Status:             models.StatusNew,
			ReporterResidentID: req.ReporterResidentID,
			ReporterName:       req.ReporterName,
			HouseholdID:        householdID,
			GroupID:            household.Details.GroupID,
			WardID:             household.Details.WardID,
			ReportCount:        1,
			CreatedByUserID:    principal.UserID,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
	}

	after, err := audit.Snapshot(newCase.Details)
	if err != nil {
		config.ErrorStatus("failed to snapshot case", http.StatusInternalServerError, w, err)
		return
	}

	err = c.Txn.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := c.DB.InsertOne(ctx, newCase); err != nil {
			return fmt.Errorf("failed to insert case: %w", err)
		}
		return c.Audit.Record(ctx, principal, models.ActionCreateCase, "case", newCase.ID.Hex(), nil, after)
	})
	if err != nil {
		config.ErrorStatus("failed to create case", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Case created successfully",
		"id":      newCase.ID.Hex(),
		"case":    newCase,
	})
}

// UpdateCaseStatusHandler moves a case to a new lifecycle status
func (c Case) UpdateCaseStatusHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	caseID := mux.Vars(r)["case_id"]

	cID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	updated, err := c.Lifecycle.Transition(ctx, principal, cID, body.Status)
	if err != nil {
		domainErrorStatus("failed to update case status", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Case status updated successfully",
		"case":    updated,
	})
}

// CreateCaseResponseHandler records an official agency response on a case
func (c Case) CreateCaseResponseHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	caseID := mux.Vars(r)["case_id"]

	cID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var input lifecycle.ResponseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	resp, err := c.Lifecycle.AttachResponse(ctx, principal, cID, input)
	if err != nil {
		domainErrorStatus("failed to respond to case", w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "Response recorded successfully",
		"id":       resp.ID.Hex(),
		"response": resp,
	})
}

// dateRangeFilter builds a createdAt range filter from the from/to query
// params. Both are RFC3339; malformed values are ignored.
func dateRangeFilter(r *http.Request) bson.M {
	rangeFilter := bson.M{}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			rangeFilter["$gte"] = primitive.NewDateTimeFromTime(t)
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			rangeFilter["$lte"] = primitive.NewDateTimeFromTime(t)
		}
	}
	if len(rangeFilter) == 0 {
		return nil
	}
	return rangeFilter
}
