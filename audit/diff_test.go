package audit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openward/ward-feedback-api/audit"
	"github.com/openward/ward-feedback-api/models"
)

func TestDiffCreation(t *testing.T) {
	after := bson.D{
		{Key: "content", Value: "pothole on Main"},
		{Key: "status", Value: models.StatusNew},
	}

	changes := audit.Diff(nil, after)

	assert.Equal(t, []models.FieldChange{
		{Field: "content", OldValue: audit.Unset, NewValue: "pothole on Main"},
		{Field: "status", OldValue: audit.Unset, NewValue: models.StatusNew},
	}, changes)
}

func TestDiffNoChanges(t *testing.T) {
	doc := bson.D{
		{Key: "content", Value: "pothole on Main"},
		{Key: "status", Value: models.StatusNew},
	}

	assert.Empty(t, audit.Diff(doc, doc))
}

func TestDiffStatusChange(t *testing.T) {
	before := bson.D{
		{Key: "content", Value: "pothole on Main"},
		{Key: "status", Value: models.StatusNew},
	}
	after := bson.D{
		{Key: "content", Value: "pothole on Main"},
		{Key: "status", Value: models.StatusInProgress},
	}

	changes := audit.Diff(before, after)

	assert.Equal(t, []models.FieldChange{
		{Field: "status", OldValue: models.StatusNew, NewValue: models.StatusInProgress},
	}, changes)
}

func TestDiffExcludesIdentityAndSecrets(t *testing.T) {
	before := bson.D{
		{Key: "_id", Value: "a"},
		{Key: "passwordHash", Value: "old"},
		{Key: "status", Value: models.StatusNew},
	}
	after := bson.D{
		{Key: "_id", Value: "b"},
		{Key: "passwordHash", Value: "new"},
		{Key: "status", Value: models.StatusClosed},
	}

	changes := audit.Diff(before, after)

	assert.Equal(t, []models.FieldChange{
		{Field: "status", OldValue: models.StatusNew, NewValue: models.StatusClosed},
	}, changes)
}

func TestDiffDroppedAndAddedFields(t *testing.T) {
	before := bson.D{
		{Key: "status", Value: models.StatusNew},
		{Key: "reporterName", Value: "walk-in"},
	}
	after := bson.D{
		{Key: "status", Value: models.StatusNew},
		{Key: "parentID", Value: "case-2"},
	}

	changes := audit.Diff(before, after)

	assert.Equal(t, []models.FieldChange{
		{Field: "parentID", OldValue: audit.Unset, NewValue: "case-2"},
		{Field: "reporterName", OldValue: "walk-in", NewValue: audit.Unset},
	}, changes)
}

func TestDiffOrderFollowsAfterDocument(t *testing.T) {
	before := bson.D{
		{Key: "a", Value: 1},
		{Key: "b", Value: 1},
	}
	after := bson.D{
		{Key: "b", Value: 2},
		{Key: "a", Value: 2},
	}

	changes := audit.Diff(before, after)

	assert.Equal(t, "b", changes[0].Field)
	assert.Equal(t, "a", changes[1].Field)
}
