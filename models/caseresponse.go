package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// CaseResponse holds the structure for the caseResponses collection in mongo
type CaseResponse struct {
	ID      primitive.ObjectID  `json:"_id" bson:"_id"`
	Details CaseResponseDetails `json:"response" bson:"response"`
	Version int32               `json:"__v" bson:"__v"`
}

// CaseResponseDetails holds the structure for the inner response structure
// as defined in the caseResponses collection in mongo
type CaseResponseDetails struct {
	CaseID        string             `json:"caseID" bson:"caseID"`
	Agency        string             `json:"agency" bson:"agency"`
	Content       string             `json:"content" bson:"content"`
	AttachmentURL string             `json:"attachmentURL,omitempty" bson:"attachmentURL,omitempty"`
	RespondedAt   primitive.DateTime `json:"respondedAt" bson:"respondedAt"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"createdAt"`
}
