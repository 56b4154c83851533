package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/openward/ward-feedback-api/audit"
	"github.com/openward/ward-feedback-api/databases/mocks"
	"github.com/openward/ward-feedback-api/lifecycle"
	"github.com/openward/ward-feedback-api/models"
	"github.com/openward/ward-feedback-api/scope"
)

type engineMocks struct {
	cases     *mocks.CaseDatabase
	responses *mocks.CaseResponseDatabase
	auditDB   *mocks.AuditDatabase
	txn       *mocks.TransactionRunner
}

func newTestEngine() (*lifecycle.Engine, *engineMocks) {
	m := &engineMocks{
		cases:     &mocks.CaseDatabase{},
		responses: &mocks.CaseResponseDatabase{},
		auditDB:   &mocks.AuditDatabase{},
		txn:       &mocks.TransactionRunner{},
	}
	engine := &lifecycle.Engine{
		Cases:     m.cases,
		Responses: m.responses,
		Audit:     audit.NewRecorder(m.auditDB),
		Scope:     scope.NewResolver(),
		Txn:       m.txn,
		Locks:     lifecycle.NewKeyedMutex(),
	}
	return engine, m
}

// passthroughTxn makes WithTransaction run the callback directly.
func passthroughTxn(m *mocks.TransactionRunner) {
	m.On("WithTransaction", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		})
}

func storedCase(id primitive.ObjectID, status string) *models.Case {
	return &models.Case{
		ID: id,
		Details: models.CaseDetails{
			Content:         "broken streetlight",
			Category:        models.CategoryInfrastructure,
			Status:          status,
			HouseholdID:     "hh-1",
			GroupID:         "grp-1",
			WardID:          "ward-1",
			ReportCount:     1,
			CreatedByUserID: "user-1",
		},
	}
}

var official = models.Principal{UserID: "off-1", Username: "lan", Role: models.RoleOfficial, ScopeID: "ward-1"}

func TestTransitionForward(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(storedCase(caseID, models.StatusNew), nil)
	m.cases.On("UpdateOne", mock.Anything, bson.M{"_id": caseID}, mock.Anything).
		Return(nil)
	m.auditDB.On("InsertOne", mock.Anything, mock.AnythingOfType("models.AuditRecord")).
		Return(nil, nil)
	passthroughTxn(m.txn)

	updated, err := engine.Transition(context.Background(), official, caseID, models.StatusInProgress)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Details.Status)
	m.auditDB.AssertNumberOfCalls(t, "InsertOne", 1)
}

func TestTransitionIdempotent(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(storedCase(caseID, models.StatusInProgress), nil)

	updated, err := engine.Transition(context.Background(), official, caseID, models.StatusInProgress)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Details.Status)
	m.txn.AssertNotCalled(t, "WithTransaction", mock.Anything, mock.Anything)
	m.auditDB.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestTransitionBackwardRejected(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(storedCase(caseID, models.StatusResolved), nil)

	_, err := engine.Transition(context.Background(), official, caseID, models.StatusInProgress)

	assert.True(t, errors.Is(err, models.ErrInvalidTransition))
}

func TestTransitionSkipForwardAllowed(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(storedCase(caseID, models.StatusNew), nil)
	m.cases.On("UpdateOne", mock.Anything, bson.M{"_id": caseID}, mock.Anything).
		Return(nil)
	m.auditDB.On("InsertOne", mock.Anything, mock.AnythingOfType("models.AuditRecord")).
		Return(nil, nil)
	passthroughTxn(m.txn)

	updated, err := engine.Transition(context.Background(), official, caseID, models.StatusClosed)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusClosed, updated.Details.Status)
}

func TestTransitionMergedChildRejected(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	merged := storedCase(caseID, models.StatusNew)
	merged.Details.ParentID = primitive.NewObjectID().Hex()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(merged, nil)

	_, err := engine.Transition(context.Background(), official, caseID, models.StatusInProgress)

	assert.True(t, errors.Is(err, models.ErrInvalidTransition))
}

func TestTransitionResolveRequiresResponse(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(storedCase(caseID, models.StatusInProgress), nil)
	m.responses.On("CountDocuments", mock.Anything, bson.M{"response.caseID": caseID.Hex()}).
		Return(int64(0), nil)

	_, err := engine.Transition(context.Background(), official, caseID, models.StatusResolved)

	assert.True(t, errors.Is(err, models.ErrInvalidTransition))
}

func TestTransitionResolveWithResponse(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(storedCase(caseID, models.StatusInProgress), nil)
	m.responses.On("CountDocuments", mock.Anything, bson.M{"response.caseID": caseID.Hex()}).
		Return(int64(1), nil)
	m.cases.On("UpdateOne", mock.Anything, bson.M{"_id": caseID}, mock.Anything).
		Return(nil)
	m.auditDB.On("InsertOne", mock.Anything, mock.AnythingOfType("models.AuditRecord")).
		Return(nil, nil)
	passthroughTxn(m.txn)

	updated, err := engine.Transition(context.Background(), official, caseID, models.StatusResolved)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Details.Status)
}

func TestTransitionRoleForbidden(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(storedCase(caseID, models.StatusInProgress), nil)

	leader := models.Principal{UserID: "l1", Role: models.RoleLeader, ScopeID: "grp-1"}
	_, err := engine.Transition(context.Background(), leader, caseID, models.StatusClosed)

	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestTransitionUnknownStatus(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.Transition(context.Background(), official, primitive.NewObjectID(), "REOPENED")

	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestTransitionMissingCase(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(nil, mongo.ErrNoDocuments)

	// Non-admins must not learn whether the case exists.
	_, err := engine.Transition(context.Background(), official, caseID, models.StatusInProgress)
	assert.True(t, errors.Is(err, models.ErrForbidden))

	admin := models.Principal{UserID: "a1", Role: models.RoleAdmin}
	_, err = engine.Transition(context.Background(), admin, caseID, models.StatusInProgress)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestTransitionOutOfScope(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(storedCase(caseID, models.StatusNew), nil)

	otherWard := models.Principal{UserID: "off-2", Role: models.RoleOfficial, ScopeID: "ward-9"}
	_, err := engine.Transition(context.Background(), otherWard, caseID, models.StatusInProgress)

	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestAttachResponse(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(storedCase(caseID, models.StatusInProgress), nil)
	m.responses.On("InsertOne", mock.Anything, mock.AnythingOfType("models.CaseResponse")).
		Return(nil, nil)
	m.cases.On("UpdateOne", mock.Anything, bson.M{"_id": caseID}, mock.Anything).
		Return(nil)
	m.auditDB.On("InsertOne", mock.Anything, mock.AnythingOfType("models.AuditRecord")).
		Return(nil, nil)
	passthroughTxn(m.txn)

	response, err := engine.AttachResponse(context.Background(), official, caseID, lifecycle.ResponseInput{
		Agency:  "public works",
		Content: "crew dispatched",
	})

	assert.NoError(t, err)
	assert.Equal(t, caseID.Hex(), response.Details.CaseID)
	assert.Equal(t, "public works", response.Details.Agency)
	m.auditDB.AssertNumberOfCalls(t, "InsertOne", 1)
}

func TestAttachResponseValidation(t *testing.T) {
	engine, _ := newTestEngine()
	caseID := primitive.NewObjectID()

	_, err := engine.AttachResponse(context.Background(), official, caseID, lifecycle.ResponseInput{Content: "no agency"})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = engine.AttachResponse(context.Background(), official, caseID, lifecycle.ResponseInput{Agency: "public works"})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestAttachResponseRoleForbidden(t *testing.T) {
	engine, _ := newTestEngine()

	citizen := models.Principal{UserID: "u1", Role: models.RoleCitizen, ScopeID: "hh-1"}
	_, err := engine.AttachResponse(context.Background(), citizen, primitive.NewObjectID(), lifecycle.ResponseInput{
		Agency:  "public works",
		Content: "crew dispatched",
	})

	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestAttachResponseClosedCase(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(storedCase(caseID, models.StatusClosed), nil)

	_, err := engine.AttachResponse(context.Background(), official, caseID, lifecycle.ResponseInput{
		Agency:  "public works",
		Content: "too late",
	})

	assert.True(t, errors.Is(err, models.ErrCaseClosed))
}

func TestAttachResponseMergedChild(t *testing.T) {
	engine, m := newTestEngine()
	caseID := primitive.NewObjectID()

	merged := storedCase(caseID, models.StatusInProgress)
	merged.Details.ParentID = primitive.NewObjectID().Hex()

	m.cases.On("FindOne", mock.Anything, bson.M{"_id": caseID}).
		Return(merged, nil)

	_, err := engine.AttachResponse(context.Background(), official, caseID, lifecycle.ResponseInput{
		Agency:  "public works",
		Content: "target the parent",
	})

	assert.True(t, errors.Is(err, models.ErrInvalidTransition))
}
