package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Household holds the structure for the households collection in mongo
type Household struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details HouseholdDetails   `json:"household" bson:"household"`
	Version int32              `json:"__v" bson:"__v"`
}

// HouseholdDetails holds the structure for the inner household structure as
// defined in the households collection in mongo
type HouseholdDetails struct {
	Address        string             `json:"address" bson:"address"`
	GroupID        string             `json:"groupID" bson:"groupID"`
	WardID         string             `json:"wardID" bson:"wardID"`
	HeadResidentID string             `json:"headResidentID" bson:"headResidentID"`
	CreatedAt      primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt      primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
