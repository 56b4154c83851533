package handlers

import (
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openward/ward-feedback-api/api"
	"github.com/openward/ward-feedback-api/config"
	"github.com/openward/ward-feedback-api/merge"
)

// Merge exported for testing purposes
type Merge struct {
	Engine *merge.Engine
}

type mergeRequest struct {
	ParentID string   `json:"parentId"`
	ChildIDs []string `json:"childIds"`
}

// MergeCasesHandler folds the given child cases into the parent case
func (m Merge) MergeCasesHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	parentID, err := primitive.ObjectIDFromHex(req.ParentID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	childIDs := make([]primitive.ObjectID, 0, len(req.ChildIDs))
	for _, raw := range req.ChildIDs {
		childID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		childIDs = append(childIDs, childID)
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	parent, err := m.Engine.Merge(ctx, principal, parentID, childIDs)
	if err != nil {
		domainErrorStatus("failed to merge cases", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Cases merged successfully",
		"case":    parent,
	})
}
