package databases

// go generate: mockery --name ResidentDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openward/ward-feedback-api/models"
)

const residentName = "residents"

// ResidentDatabase contains the read-only methods to use with the resident
// database. Resident administration lives in a separate service.
type ResidentDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Resident, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Resident, error)
}

type residentDatabase struct {
	db DatabaseHelper
}

// NewResidentDatabase initializes a new instance of resident database with the provided db connection
func NewResidentDatabase(db DatabaseHelper) ResidentDatabase {
	return &residentDatabase{
		db: db,
	}
}

func (c *residentDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Resident, error) {
	resident := &models.Resident{}
	err := c.db.Collection(residentName).FindOne(ctx, filter, opts...).Decode(&resident)
	if err != nil {
		return nil, err
	}
	return resident, nil
}

func (c *residentDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Resident, error) {
	var residents []models.Resident
	curr, err := c.db.Collection(residentName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &residents)
	if err != nil {
		return nil, err
	}
	return residents, nil
}
