package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openward/ward-feedback-api/api/handlers"
	"github.com/openward/ward-feedback-api/audit"
	"github.com/openward/ward-feedback-api/databases/mocks"
	"github.com/openward/ward-feedback-api/lifecycle"
	"github.com/openward/ward-feedback-api/merge"
	"github.com/openward/ward-feedback-api/models"
	"github.com/openward/ward-feedback-api/scope"
)

func newMergeHandler() (handlers.Merge, *mocks.CaseDatabase) {
	caseDB := &mocks.CaseDatabase{}
	m := handlers.Merge{
		Engine: &merge.Engine{
			Cases: caseDB,
			Audit: audit.NewRecorder(&mocks.AuditDatabase{}),
			Scope: scope.NewResolver(),
			Txn:   &mocks.TransactionRunner{},
			Locks: lifecycle.NewKeyedMutex(),
		},
	}
	return m, caseDB
}

var leaderPrincipal = models.Principal{UserID: "ldr-1", Username: "vi", Role: models.RoleLeader, ScopeID: "grp-1"}

func TestMerge_MergeCasesHandlerBadHex(t *testing.T) {
	m, _ := newMergeHandler()

	body, _ := json.Marshal(map[string]interface{}{
		"parentId": "not-a-hex",
		"childIds": []string{primitive.NewObjectID().Hex()},
	})
	req, _ := http.NewRequest("POST", "/api/v1/cases/merge", bytes.NewReader(body))
	req = withPrincipal(req, leaderPrincipal)

	rr := httptest.NewRecorder()
	http.HandlerFunc(m.MergeCasesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to get objectID from Hex")
}

func TestMerge_MergeCasesHandlerRoleForbidden(t *testing.T) {
	m, _ := newMergeHandler()

	body, _ := json.Marshal(map[string]interface{}{
		"parentId": primitive.NewObjectID().Hex(),
		"childIds": []string{primitive.NewObjectID().Hex()},
	})
	req, _ := http.NewRequest("POST", "/api/v1/cases/merge", bytes.NewReader(body))
	req = withPrincipal(req, citizenPrincipal)

	rr := httptest.NewRecorder()
	http.HandlerFunc(m.MergeCasesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestMerge_MergeCasesHandlerParentOnly(t *testing.T) {
	m, _ := newMergeHandler()

	parentID := primitive.NewObjectID()
	body, _ := json.Marshal(map[string]interface{}{
		"parentId": parentID.Hex(),
		"childIds": []string{parentID.Hex()},
	})
	req, _ := http.NewRequest("POST", "/api/v1/cases/merge", bytes.NewReader(body))
	req = withPrincipal(req, leaderPrincipal)

	rr := httptest.NewRecorder()
	http.HandlerFunc(m.MergeCasesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
