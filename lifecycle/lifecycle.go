// Package lifecycle owns the finite-state model of a feedback case: which
// status moves are legal, what data they require, and the audit record every
// mutation leaves behind.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/openward/ward-feedback-api/audit"
	"github.com/openward/ward-feedback-api/databases"
	"github.com/openward/ward-feedback-api/models"
	"github.com/openward/ward-feedback-api/scope"
)

// Engine applies status transitions and agency responses to cases.
type Engine struct {
	Cases     databases.CaseDatabase
	Responses databases.CaseResponseDatabase
	Audit     *audit.Recorder
	Scope     *scope.Resolver
	Txn       databases.TransactionRunner
	Locks     *KeyedMutex
}

// ResponseInput is the caller-supplied part of an agency response.
type ResponseInput struct {
	Agency        string
	Content       string
	AttachmentURL string
}

// Transition moves a case into newStatus.
//
// Same-status calls are retry-safe no-ops: they succeed, return the
// unchanged case and write no audit record. Backward moves are rejected;
// forward jumps that skip a state are legal.
func (e *Engine) Transition(ctx context.Context, actor models.Principal, caseID primitive.ObjectID, newStatus string) (*models.Case, error) {
	if models.StatusRank(newStatus) == -1 {
		return nil, fmt.Errorf("unknown status %q: %w", newStatus, models.ErrValidation)
	}

	e.Locks.Lock(caseID.Hex())
	defer e.Locks.Unlock(caseID.Hex())

	caseRecord, err := e.Cases.FindOne(ctx, bson.M{"_id": caseID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, e.Scope.MissingErr(actor)
		}
		return nil, err
	}
	if !e.Scope.Visible(actor, caseRecord.Details) {
		return nil, e.Scope.MissingErr(actor)
	}
	if caseRecord.Details.Merged() {
		return nil, fmt.Errorf("case %s was merged into %s: %w",
			caseID.Hex(), caseRecord.Details.ParentID, models.ErrInvalidTransition)
	}
	if newStatus == caseRecord.Details.Status {
		return caseRecord, nil
	}
	if models.StatusRank(newStatus) < models.StatusRank(caseRecord.Details.Status) {
		return nil, fmt.Errorf("cannot move %q back to %q: %w",
			caseRecord.Details.Status, newStatus, models.ErrInvalidTransition)
	}
	if err := e.Scope.AuthorizeTransition(actor, newStatus); err != nil {
		return nil, err
	}
	if newStatus == models.StatusResolved {
		count, err := e.Responses.CountDocuments(ctx, bson.M{"response.caseID": caseID.Hex()})
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, fmt.Errorf("resolving requires at least one agency response: %w", models.ErrInvalidTransition)
		}
	}

	before, err := audit.Snapshot(caseRecord.Details)
	if err != nil {
		return nil, err
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	updated := *caseRecord
	updated.Details.Status = newStatus
	updated.Details.UpdatedAt = now

	after, err := audit.Snapshot(updated.Details)
	if err != nil {
		return nil, err
	}

	err = e.Txn.WithTransaction(ctx, func(ctx context.Context) error {
		err := e.Cases.UpdateOne(ctx, bson.M{"_id": caseID}, bson.M{"$set": bson.M{
			"case.status":    newStatus,
			"case.updatedAt": now,
		}})
		if err != nil {
			return err
		}
		return e.Audit.Record(ctx, actor, models.ActionUpdateStatus, "case", caseID.Hex(), before, after)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// AttachResponse records an agency response against a case. It never changes
// the case status; resolving is a separate explicit transition.
func (e *Engine) AttachResponse(ctx context.Context, actor models.Principal, caseID primitive.ObjectID, input ResponseInput) (*models.CaseResponse, error) {
	if input.Agency == "" {
		return nil, fmt.Errorf("agency is required: %w", models.ErrValidation)
	}
	if input.Content == "" {
		return nil, fmt.Errorf("content is required: %w", models.ErrValidation)
	}
	if err := e.Scope.Authorize(actor, scope.ActionRespondToCase); err != nil {
		return nil, err
	}

	e.Locks.Lock(caseID.Hex())
	defer e.Locks.Unlock(caseID.Hex())

	caseRecord, err := e.Cases.FindOne(ctx, bson.M{"_id": caseID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, e.Scope.MissingErr(actor)
		}
		return nil, err
	}
	if !e.Scope.Visible(actor, caseRecord.Details) {
		return nil, e.Scope.MissingErr(actor)
	}
	if caseRecord.Details.Merged() {
		return nil, fmt.Errorf("case %s was merged into %s: %w",
			caseID.Hex(), caseRecord.Details.ParentID, models.ErrInvalidTransition)
	}
	if caseRecord.Details.Status == models.StatusClosed {
		return nil, fmt.Errorf("case %s: %w", caseID.Hex(), models.ErrCaseClosed)
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	response := models.CaseResponse{
		ID: primitive.NewObjectID(),
		Details: models.CaseResponseDetails{
			CaseID:        caseID.Hex(),
			Agency:        input.Agency,
			Content:       input.Content,
			AttachmentURL: input.AttachmentURL,
			RespondedAt:   now,
			CreatedAt:     now,
		},
	}

	after, err := audit.Snapshot(response.Details)
	if err != nil {
		return nil, err
	}

	err = e.Txn.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := e.Responses.InsertOne(ctx, response); err != nil {
			return err
		}
		err := e.Cases.UpdateOne(ctx, bson.M{"_id": caseID}, bson.M{"$set": bson.M{
			"case.updatedAt": now,
		}})
		if err != nil {
			return err
		}
		return e.Audit.Record(ctx, actor, models.ActionRespondToCase, "caseResponse", response.ID.Hex(), nil, after)
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}
