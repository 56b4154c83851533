package databases

// go generate: mockery --name CaseResponseDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openward/ward-feedback-api/models"
)

const caseResponseName = "caseResponses"

// CaseResponseDatabase contains the methods to use with the case response database
type CaseResponseDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.CaseResponse, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error)
}

type caseResponseDatabase struct {
	db DatabaseHelper
}

// NewCaseResponseDatabase initializes a new instance of case response database with the provided db connection
func NewCaseResponseDatabase(db DatabaseHelper) CaseResponseDatabase {
	return &caseResponseDatabase{
		db: db,
	}
}

func (c *caseResponseDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.CaseResponse, error) {
	var responses []models.CaseResponse
	curr, err := c.db.Collection(caseResponseName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &responses)
	if err != nil {
		return nil, err
	}
	return responses, nil
}

func (c *caseResponseDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(caseResponseName).InsertOne(ctx, document, opts...)
	return res, err
}

func (c *caseResponseDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(caseResponseName).CountDocuments(ctx, filter, opts...)
}
