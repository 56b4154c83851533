// Package audit writes the append-only trail of case mutations and computes
// before/after diffs for the admin views.
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openward/ward-feedback-api/databases"
	"github.com/openward/ward-feedback-api/models"
)

type metaKey struct{}

// RequestMeta is best-effort request metadata stamped onto every record.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// WithRequestMeta attaches request metadata to the context.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

// MetaFromContext returns the request metadata, zero-valued when absent.
func MetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(metaKey{}).(RequestMeta)
	return meta
}

// Recorder writes audit records. Callers are expected to invoke Record with
// the same (transactional) context as the mutation being recorded, so the
// record commits or rolls back with it.
type Recorder struct {
	DB databases.AuditDatabase
}

// NewRecorder returns a Recorder backed by the given audit database.
func NewRecorder(db databases.AuditDatabase) *Recorder {
	return &Recorder{DB: db}
}

// Record writes one audit record. before may be nil for creations.
func (r *Recorder) Record(ctx context.Context, actor models.Principal, action, entityName, entityID string, before, after bson.D) error {
	meta := MetaFromContext(ctx)
	record := models.AuditRecord{
		ID: primitive.NewObjectID(),
		Details: models.AuditDetails{
			UserID:      actor.UserID,
			Username:    actor.Username,
			Role:        string(actor.Role),
			Action:      action,
			EntityName:  entityName,
			EntityID:    entityID,
			BeforeState: before,
			AfterState:  after,
			IPAddress:   meta.IPAddress,
			UserAgent:   meta.UserAgent,
			Timestamp:   primitive.NewDateTimeFromTime(time.Now()),
		},
	}
	_, err := r.DB.InsertOne(ctx, record)
	return err
}

// Snapshot converts any bson-marshalable value into an ordered document
// suitable for BeforeState/AfterState.
func Snapshot(v interface{}) (bson.D, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
