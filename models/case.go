package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Case statuses, ordered. A case only ever moves forward in this ordering.
const (
	StatusNew        = "NEW"
	StatusInProgress = "IN_PROGRESS"
	StatusResolved   = "RESOLVED"
	StatusClosed     = "CLOSED"
)

// Case categories
const (
	CategoryInfrastructure = "INFRASTRUCTURE"
	CategorySecurity       = "SECURITY"
	CategoryEnvironment    = "ENVIRONMENT"
	CategoryOther          = "OTHER"
)

// StatusRank returns the position of a status in the lifecycle ordering,
// or -1 for an unknown status.
func StatusRank(status string) int {
	switch status {
	case StatusNew:
		return 0
	case StatusInProgress:
		return 1
	case StatusResolved:
		return 2
	case StatusClosed:
		return 3
	}
	return -1
}

// ValidCategory reports whether category is one of the closed category set.
func ValidCategory(category string) bool {
	switch category {
	case CategoryInfrastructure, CategorySecurity, CategoryEnvironment, CategoryOther:
		return true
	}
	return false
}

// Case holds the structure for the cases collection in mongo
type Case struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details CaseDetails        `json:"case" bson:"case"`
	Version int32              `json:"__v" bson:"__v"`
}

// CaseDetails holds the structure for the inner case structure as
// defined in the cases collection in mongo.
//
// HouseholdID, GroupID and WardID are denormalized from the household record
// at creation time so scope checks and list filters never need a join.
type CaseDetails struct {
	Content  string `json:"content" bson:"content"`
	Category string `json:"category" bson:"category"`
	Status   string `json:"status" bson:"status"`

	// Reporter: exactly one of the two is set. ReporterResidentID references
	// a registered resident; ReporterName is free text for walk-ins.
	ReporterResidentID string `json:"reporterResidentID,omitempty" bson:"reporterResidentID,omitempty"`
	ReporterName       string `json:"reporterName,omitempty" bson:"reporterName,omitempty"`

	HouseholdID string `json:"householdID" bson:"householdID"`
	GroupID     string `json:"groupID" bson:"groupID"`
	WardID      string `json:"wardID" bson:"wardID"`

	// ParentID is set when this case has been merged into another case.
	// A merged child never accepts transitions or responses.
	ParentID    string `json:"parentID,omitempty" bson:"parentID,omitempty"`
	ReportCount int    `json:"reportCount" bson:"reportCount"`

	CreatedByUserID string `json:"createdByUserID" bson:"createdByUserID"`

	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// Merged reports whether the case has been absorbed into a parent case.
func (d CaseDetails) Merged() bool {
	return d.ParentID != ""
}
