package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openward/ward-feedback-api/audit"
	"github.com/openward/ward-feedback-api/databases/mocks"
	"github.com/openward/ward-feedback-api/models"
)

func TestRecorderRecord(t *testing.T) {
	auditDB := &mocks.AuditDatabase{}

	var inserted models.AuditRecord
	auditDB.On("InsertOne", mock.Anything, mock.AnythingOfType("models.AuditRecord")).
		Return(nil, nil).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(models.AuditRecord)
	})

	recorder := audit.NewRecorder(auditDB)

	actor := models.Principal{UserID: "u1", Username: "lan", Role: models.RoleOfficial}
	ctx := audit.WithRequestMeta(context.Background(), audit.RequestMeta{
		IPAddress: "10.0.0.9",
		UserAgent: "curl/8.0",
	})

	before := bson.D{{Key: "status", Value: models.StatusNew}}
	after := bson.D{{Key: "status", Value: models.StatusInProgress}}

	err := recorder.Record(ctx, actor, models.ActionUpdateStatus, "case", "case-1", before, after)
	assert.NoError(t, err)

	assert.NotEmpty(t, inserted.ID)
	assert.Equal(t, "u1", inserted.Details.UserID)
	assert.Equal(t, "lan", inserted.Details.Username)
	assert.Equal(t, "official", inserted.Details.Role)
	assert.Equal(t, models.ActionUpdateStatus, inserted.Details.Action)
	assert.Equal(t, "case", inserted.Details.EntityName)
	assert.Equal(t, "case-1", inserted.Details.EntityID)
	assert.Equal(t, before, inserted.Details.BeforeState)
	assert.Equal(t, after, inserted.Details.AfterState)
	assert.Equal(t, "10.0.0.9", inserted.Details.IPAddress)
	assert.Equal(t, "curl/8.0", inserted.Details.UserAgent)
	assert.NotZero(t, inserted.Details.Timestamp)
}

func TestRecorderRecordNoMeta(t *testing.T) {
	auditDB := &mocks.AuditDatabase{}

	var inserted models.AuditRecord
	auditDB.On("InsertOne", mock.Anything, mock.AnythingOfType("models.AuditRecord")).
		Return(nil, nil).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(models.AuditRecord)
	})

	recorder := audit.NewRecorder(auditDB)

	err := recorder.Record(context.Background(), models.Principal{UserID: "u1", Role: models.RoleAdmin},
		models.ActionCreateCase, "case", "case-1", nil, bson.D{{Key: "status", Value: models.StatusNew}})
	assert.NoError(t, err)

	assert.Empty(t, inserted.Details.IPAddress)
	assert.Empty(t, inserted.Details.UserAgent)
	assert.Nil(t, inserted.Details.BeforeState)
}

func TestSnapshotPreservesFieldOrder(t *testing.T) {
	details := models.CaseDetails{
		Content:  "noise complaint",
		Category: models.CategorySecurity,
		Status:   models.StatusNew,
	}

	doc, err := audit.Snapshot(details)
	assert.NoError(t, err)

	assert.Equal(t, "content", doc[0].Key)
	assert.Equal(t, "category", doc[1].Key)
	assert.Equal(t, "status", doc[2].Key)
}
