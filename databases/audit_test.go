package databases_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openward/ward-feedback-api/config"
	"github.com/openward/ward-feedback-api/databases"
	"github.com/openward/ward-feedback-api/databases/mocks"
	"github.com/openward/ward-feedback-api/models"
)

func TestNewAuditDatabase(t *testing.T) {
	_ = os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	_ = os.Setenv("DB_NAME", "test")
	conf := config.New()

	dbClient, err := databases.NewClient(conf)
	assert.NoError(t, err)

	db := databases.NewDatabase(conf, dbClient)

	auditDB := databases.NewAuditDatabase(db)

	assert.NotEmpty(t, auditDB)
}

func TestAuditDatabase_FindOne(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperErr databases.SingleResultHelper
	var srHelperCorrect databases.SingleResultHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperErr = &mocks.SingleResultHelper{}
	srHelperCorrect = &mocks.SingleResultHelper{}

	mockedID := primitive.NewObjectID()

	srHelperErr.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(errors.New("mocked-error"))

	srHelperCorrect.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.AuditRecord)
		(*arg).ID = mockedID
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": true}).
		Return(srHelperErr)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": false}).
		Return(srHelperCorrect)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "auditRecords").Return(collectionHelper)

	auditDba := databases.NewAuditDatabase(dbHelper)

	record, err := auditDba.FindOne(context.Background(), bson.M{"error": true})

	assert.Empty(t, record)
	assert.EqualError(t, err, "mocked-error")

	record, err = auditDba.FindOne(context.Background(), bson.M{"error": false})

	assert.Equal(t, &models.AuditRecord{ID: mockedID}, record)
	assert.NoError(t, err)
}

func TestAuditDatabase_InsertOne(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var iorHelper databases.InsertOneResultHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	iorHelper = &mocks.InsertOneResultHelper{}

	mockedID := primitive.NewObjectID()

	iorHelper.(*mocks.InsertOneResultHelper).
		On("Decode").Return(mockedID)

	collectionHelper.(*mocks.CollectionHelper).
		On("InsertOne", context.Background(), bson.M{"error": true}).
		Return(nil, errors.New("mocked-error"))

	collectionHelper.(*mocks.CollectionHelper).
		On("InsertOne", context.Background(), bson.M{"error": false}).
		Return(iorHelper, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "auditRecords").Return(collectionHelper)

	auditDba := databases.NewAuditDatabase(dbHelper)

	res, err := auditDba.InsertOne(context.Background(), bson.M{"error": true})

	assert.Empty(t, res)
	assert.EqualError(t, err, "mocked-error")

	res, err = auditDba.InsertOne(context.Background(), bson.M{"error": false})

	assert.Equal(t, mockedID, res.Decode())
	assert.NoError(t, err)
}
