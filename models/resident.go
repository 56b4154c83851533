package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Resident holds the structure for the residents collection in mongo
type Resident struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details ResidentDetails    `json:"resident" bson:"resident"`
	Version int32              `json:"__v" bson:"__v"`
}

// ResidentDetails holds the structure for the inner resident structure as
// defined in the residents collection in mongo
type ResidentDetails struct {
	FullName    string             `json:"fullName" bson:"fullName"`
	HouseholdID string             `json:"householdID" bson:"householdID"`
	UserID      string             `json:"userID,omitempty" bson:"userID,omitempty"`
	DateOfBirth primitive.DateTime `json:"dateOfBirth" bson:"dateOfBirth"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
