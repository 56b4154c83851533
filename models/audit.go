package models

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit actions written by the core. Account and role administration
// actions share the same collection but are written by the auth service.
const (
	ActionCreateCase    = "create-case"
	ActionUpdateStatus  = "update-status"
	ActionMergeCases    = "merge-cases"
	ActionRespondToCase = "respond-to-case"
)

// AuditRecord holds the structure for the auditRecords collection in mongo.
// Records are write-once; no update or delete path exists anywhere.
type AuditRecord struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details AuditDetails       `json:"audit" bson:"audit"`
	Version int32              `json:"__v" bson:"__v"`
}

// AuditDetails holds the inner audit record structure. Actor fields are a
// snapshot of the principal at the time of the action, not a reference.
//
// BeforeState/AfterState are stored as ordered documents (bson.D) so the
// field order of the snapshot survives round-trips; the diff view depends
// on that order being stable.
type AuditDetails struct {
	UserID   string `json:"userID" bson:"userID"`
	Username string `json:"username" bson:"username"`
	Role     string `json:"role" bson:"role"`

	Action     string `json:"action" bson:"action"`
	EntityName string `json:"entityName" bson:"entityName"`
	EntityID   string `json:"entityID" bson:"entityID"`

	BeforeState bson.D `json:"beforeState,omitempty" bson:"beforeState,omitempty"`
	AfterState  bson.D `json:"afterState" bson:"afterState"`

	// Best-effort request metadata; may be absent.
	IPAddress string `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty" bson:"userAgent,omitempty"`

	Timestamp primitive.DateTime `json:"timestamp" bson:"timestamp"`
}

// FieldChange is one entry of a computed before/after diff.
type FieldChange struct {
	Field    string      `json:"field"`
	OldValue interface{} `json:"oldValue"`
	NewValue interface{} `json:"newValue"`
}
