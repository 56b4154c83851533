package databases

// go generate: mockery --name HouseholdDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openward/ward-feedback-api/models"
)

const householdName = "households"

// HouseholdDatabase contains the read-only methods to use with the household
// database. Household administration lives in a separate service.
type HouseholdDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Household, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Household, error)
}

type householdDatabase struct {
	db DatabaseHelper
}

// NewHouseholdDatabase initializes a new instance of household database with the provided db connection
func NewHouseholdDatabase(db DatabaseHelper) HouseholdDatabase {
	return &householdDatabase{
		db: db,
	}
}

func (c *householdDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Household, error) {
	household := &models.Household{}
	err := c.db.Collection(householdName).FindOne(ctx, filter, opts...).Decode(&household)
	if err != nil {
		return nil, err
	}
	return household, nil
}

func (c *householdDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Household, error) {
	var households []models.Household
	curr, err := c.db.Collection(householdName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &households)
	if err != nil {
		return nil, err
	}
	return households, nil
}
