package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openward/ward-feedback-api/api"
	"github.com/openward/ward-feedback-api/audit"
	"github.com/openward/ward-feedback-api/config"
	"github.com/openward/ward-feedback-api/databases"
	"github.com/openward/ward-feedback-api/models"
	"github.com/openward/ward-feedback-api/scope"
)

// Audit exported for testing purposes
type Audit struct {
	DB    databases.AuditDatabase
	Scope *scope.Resolver
}

// actionTypeFilters groups audit actions into the buckets the admin UI
// filters by.
var actionTypeFilters = map[string][]string{
	"case":     {models.ActionCreateCase, models.ActionUpdateStatus, models.ActionMergeCases},
	"response": {models.ActionRespondToCase},
}

// AuditLogsHandler returns the audit trail, admin only
func (a Audit) AuditLogsHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := a.Scope.Authorize(principal, scope.ActionViewAudit); err != nil {
		domainErrorStatus("failed to get audit logs", w, err)
		return
	}

	pageSize, err := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if err != nil || pageSize <= 0 {
		pageSize = 20
	}
	pageSize64 := int64(pageSize)
	page := getPage(Page, r)
	skip64 := int64(page * pageSize)

	// Only successful actions are ever recorded, so an error-status filter
	// matches nothing.
	if r.URL.Query().Get("status") == "error" {
		b, _ := json.Marshal(map[string]interface{}{
			"logs":       []models.AuditRecord{},
			"total":      0,
			"page":       page,
			"pageSize":   pageSize,
			"totalPages": 0,
		})
		w.WriteHeader(http.StatusOK)
		w.Write(b)
		return
	}

	filter := bson.M{}
	if actionType := r.URL.Query().Get("actionType"); actionType != "" {
		if actions, known := actionTypeFilters[actionType]; known {
			filter["audit.action"] = bson.M{"$in": actions}
		} else {
			filter["audit.action"] = actionType
		}
	}
	if role := r.URL.Query().Get("role"); role != "" {
		filter["audit.role"] = role
	}
	if search := r.URL.Query().Get("search"); search != "" {
		filter["$or"] = []bson.M{
			{"audit.username": bson.M{"$regex": search, "$options": "i"}},
			{"audit.action": bson.M{"$regex": search, "$options": "i"}},
			{"audit.entityName": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	if timestampRange := auditDateRange(r); timestampRange != nil {
		filter["audit.timestamp"] = timestampRange
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().
		SetLimit(pageSize64).
		SetSkip(skip64).
		SetSort(bson.M{"audit.timestamp": -1})

	type findResult struct {
		records []models.AuditRecord
		err     error
	}
	type countResult struct {
		count int64
		err   error
	}

	findChan := make(chan findResult, 1)
	countChan := make(chan countResult, 1)

	go func() {
		records, err := a.DB.Find(ctx, filter, opts)
		findChan <- findResult{records: records, err: err}
	}()

	go func() {
		count, err := a.DB.CountDocuments(ctx, filter)
		countChan <- countResult{count: count, err: err}
	}()

	findRes := <-findChan
	countRes := <-countChan

	if findRes.err != nil {
		config.ErrorStatus("failed to get audit logs", http.StatusNotFound, w, findRes.err)
		return
	}

	dbResp := findRes.records
	var total int64
	if countRes.err != nil {
		total = int64(len(dbResp))
	} else {
		total = countRes.count
	}

	if len(dbResp) == 0 {
		dbResp = []models.AuditRecord{}
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	b, err := json.Marshal(map[string]interface{}{
		"logs":       dbResp,
		"total":      total,
		"page":       page,
		"pageSize":   pageSize,
		"totalPages": totalPages,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// AuditByIDHandler returns a single audit record with its computed
// field-by-field changes, admin only
func (a Audit) AuditByIDHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := a.Scope.Authorize(principal, scope.ActionViewAudit); err != nil {
		domainErrorStatus("failed to get audit record", w, err)
		return
	}

	auditID := mux.Vars(r)["audit_id"]

	aID, err := primitive.ObjectIDFromHex(auditID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := a.DB.FindOne(ctx, bson.M{"_id": aID})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			domainErrorStatus("failed to get audit record", w, models.ErrNotFound)
			return
		}
		config.ErrorStatus("failed to get audit record", http.StatusNotFound, w, err)
		return
	}

	changes := audit.Diff(dbResp.Details.BeforeState, dbResp.Details.AfterState)

	b, err := json.Marshal(map[string]interface{}{
		"record":  dbResp,
		"changes": changes,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func auditDateRange(r *http.Request) bson.M {
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
