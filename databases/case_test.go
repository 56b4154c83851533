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

func TestNewCaseDatabase(t *testing.T) {
	_ = os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	_ = os.Setenv("DB_NAME", "test")
	conf := config.New()

	dbClient, err := databases.NewClient(conf)
	assert.NoError(t, err)

	db := databases.NewDatabase(conf, dbClient)

	caseDB := databases.NewCaseDatabase(db)

	assert.NotEmpty(t, caseDB)
}

func TestCaseDatabase_FindOne(t *testing.T) {

	// define variables for interfaces
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperErr databases.SingleResultHelper
	var srHelperCorrect databases.SingleResultHelper

	// set interfaces implementation to mocked structures
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
		arg := args.Get(0).(**models.Case)
		(*arg).ID = mockedID
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": true}).
		Return(srHelperErr)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": false}).
		Return(srHelperCorrect)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "cases").Return(collectionHelper)

	// Create new database with mocked Database interface
	caseDba := databases.NewCaseDatabase(dbHelper)

	// Call method with defined filter, that in our mocked function returns
	// mocked-error
	caseRecord, err := caseDba.FindOne(context.Background(), bson.M{"error": true})

	assert.Empty(t, caseRecord)
	assert.EqualError(t, err, "mocked-error")

	// Now call the same function with different filter for correct
	// result
	caseRecord, err = caseDba.FindOne(context.Background(), bson.M{"error": false})

	assert.Equal(t, &models.Case{ID: mockedID}, caseRecord)
	assert.NoError(t, err)
}

func TestCaseDatabase_Find(t *testing.T) {

	// define variables for interfaces
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var cursorHelper databases.CursorHelper

	// set interfaces implementation to mocked structures
	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	cursorHelper = &mocks.CursorHelper{}

	mockedID := primitive.NewObjectID()

	cursorHelper.(*mocks.CursorHelper).
		On("All", context.Background(), mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.Case)
		*arg = []models.Case{{ID: mockedID}}
	})
	cursorHelper.(*mocks.CursorHelper).
		On("Close", context.Background()).
		Return(nil)

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.M{"error": true}).
		Return(nil, errors.New("mocked-error"))

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.M{"error": false}).
		Return(cursorHelper, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "cases").Return(collectionHelper)

	// Create new database with mocked Database interface
	caseDba := databases.NewCaseDatabase(dbHelper)

	// Call method with defined filter, that in our mocked function returns
	// mocked-error
	cases, err := caseDba.Find(context.Background(), bson.M{"error": true})

	assert.Empty(t, cases)
	assert.EqualError(t, err, "mocked-error")

	// Now call the same function with different filter for correct
	// result
	cases, err = caseDba.Find(context.Background(), bson.M{"error": false})

	assert.Equal(t, []models.Case{{ID: mockedID}}, cases)
	assert.NoError(t, err)
}

func TestCaseDatabase_UpdateOne(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", context.Background(), bson.M{"error": true}, mock.Anything).
		Return(errors.New("mocked-error"))

	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", context.Background(), bson.M{"error": false}, mock.Anything).
		Return(nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "cases").Return(collectionHelper)

	caseDba := databases.NewCaseDatabase(dbHelper)

	err := caseDba.UpdateOne(context.Background(), bson.M{"error": true}, bson.M{"$set": bson.M{}})
	assert.EqualError(t, err, "mocked-error")

	err = caseDba.UpdateOne(context.Background(), bson.M{"error": false}, bson.M{"$set": bson.M{}})
	assert.NoError(t, err)
}

func TestCaseDatabase_CountDocuments(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("CountDocuments", context.Background(), bson.M{"error": true}).
		Return(int64(0), errors.New("mocked-error"))

	collectionHelper.(*mocks.CollectionHelper).
		On("CountDocuments", context.Background(), bson.M{"error": false}).
		Return(int64(7), nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "cases").Return(collectionHelper)

	caseDba := databases.NewCaseDatabase(dbHelper)

	count, err := caseDba.CountDocuments(context.Background(), bson.M{"error": true})
	assert.Zero(t, count)
	assert.EqualError(t, err, "mocked-error")

	count, err = caseDba.CountDocuments(context.Background(), bson.M{"error": false})
	assert.Equal(t, int64(7), count)
	assert.NoError(t, err)
}
