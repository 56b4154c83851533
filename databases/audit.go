package databases

// go generate: mockery --name AuditDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openward/ward-feedback-api/models"
)

const auditName = "auditRecords"

// AuditDatabase contains the methods to use with the audit record database.
// Records are append-only: no update or delete methods exist on purpose.
type AuditDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.AuditRecord, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.AuditRecord, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error)
}

type auditDatabase struct {
	db DatabaseHelper
}

// NewAuditDatabase initializes a new instance of audit database with the provided db connection
func NewAuditDatabase(db DatabaseHelper) AuditDatabase {
	return &auditDatabase{
		db: db,
	}
}

func (c *auditDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.AuditRecord, error) {
	record := &models.AuditRecord{}
	err := c.db.Collection(auditName).FindOne(ctx, filter, opts...).Decode(&record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (c *auditDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.AuditRecord, error) {
	var records []models.AuditRecord
	curr, err := c.db.Collection(auditName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *auditDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(auditName).InsertOne(ctx, document, opts...)
	return res, err
}

func (c *auditDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(auditName).CountDocuments(ctx, filter, opts...)
}
