// Package merge folds duplicate feedback cases into a single surviving
// parent so one underlying issue is tracked, and counted, exactly once.
package merge

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
	"github.com/openward/ward-feedback-api/lifecycle"
	"github.com/openward/ward-feedback-api/models"
	"github.com/openward/ward-feedback-api/scope"
)

// Engine performs case merges.
type Engine struct {
	Cases databases.CaseDatabase
	Audit *audit.Recorder
	Scope *scope.Resolver
	Txn   databases.TransactionRunner
	Locks *lifecycle.KeyedMutex
}

// Merge absorbs the given children into parentID.
//
// Every precondition is checked under the locks before the first write, so a
// failed merge leaves no partial state even without the transaction. Children
// that were themselves merge parents hand their own children over to the new
// parent, keeping the merge tree at depth one.
func (e *Engine) Merge(ctx context.Context, actor models.Principal, parentID primitive.ObjectID, childIDs []primitive.ObjectID) (*models.Case, error) {
	if err := e.Scope.Authorize(actor, scope.ActionMergeCases); err != nil {
		return nil, err
	}

	// Distinct children, never the parent itself.
	seen := map[primitive.ObjectID]bool{parentID: true}
	children := make([]primitive.ObjectID, 0, len(childIDs))
	for _, id := range childIDs {
		if !seen[id] {
			seen[id] = true
			children = append(children, id)
		}
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("a merge needs at least two distinct cases: %w", models.ErrInsufficientCount)
	}

	lockKeys := []string{parentID.Hex()}
	for _, id := range children {
		lockKeys = append(lockKeys, id.Hex())
	}
	unlock := e.Locks.LockAll(lockKeys)
	defer unlock()

	parent, err := e.loadMergeable(ctx, actor, parentID)
	if err != nil {
		return nil, err
	}

	childRecords := make([]*models.Case, 0, len(children))
	grandchildren := map[primitive.ObjectID][]models.Case{}
	for _, id := range children {
		child, err := e.loadMergeable(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		childRecords = append(childRecords, child)

		// A child may itself be a parent; its children move up with it.
		gc, err := e.Cases.Find(ctx, bson.M{"case.parentID": id.Hex()})
		if err != nil {
			return nil, err
		}
		if len(gc) > 0 {
			grandchildren[id] = gc
		}
	}

	now := primitive.NewDateTimeFromTime(time.Now())

	// The parent absorbs each child's full weight. A former parent among the
	// children then counts only its own report, since its children now hang
	// directly off the new parent.
	newCount := parent.Details.ReportCount
	for _, child := range childRecords {
		newCount += child.Details.ReportCount
	}

	parentBefore, err := audit.Snapshot(parent.Details)
	if err != nil {
		return nil, err
	}

	updatedParent := *parent
	updatedParent.Details.ReportCount = newCount
	updatedParent.Details.UpdatedAt = now

	parentAfter, err := audit.Snapshot(updatedParent.Details)
	if err != nil {
		return nil, err
	}

	err = e.Txn.WithTransaction(ctx, func(ctx context.Context) error {
		for _, child := range childRecords {
			before, err := audit.Snapshot(child.Details)
			if err != nil {
				return err
			}

			updatedChild := child.Details
			updatedChild.ParentID = parentID.Hex()
			updatedChild.UpdatedAt = now
			set := bson.M{
				"case.parentID":  parentID.Hex(),
				"case.updatedAt": now,
			}
			if len(grandchildren[child.ID]) > 0 {
				updatedChild.ReportCount = 1
				set["case.reportCount"] = 1
			}

			if err := e.Cases.UpdateOne(ctx, bson.M{"_id": child.ID}, bson.M{"$set": set}); err != nil {
				return err
			}

			after, err := audit.Snapshot(updatedChild)
			if err != nil {
				return err
			}
			if err := e.Audit.Record(ctx, actor, models.ActionMergeCases, "case", child.ID.Hex(), before, after); err != nil {
				return err
			}

			for _, gc := range grandchildren[child.ID] {
				gcBefore, err := audit.Snapshot(gc.Details)
				if err != nil {
					return err
				}
				updatedGc := gc.Details
				updatedGc.ParentID = parentID.Hex()
				updatedGc.UpdatedAt = now

				err = e.Cases.UpdateOne(ctx, bson.M{"_id": gc.ID}, bson.M{"$set": bson.M{
					"case.parentID":  parentID.Hex(),
					"case.updatedAt": now,
				}})
				if err != nil {
					return err
				}

				gcAfter, err := audit.Snapshot(updatedGc)
				if err != nil {
					return err
				}
				if err := e.Audit.Record(ctx, actor, models.ActionMergeCases, "case", gc.ID.Hex(), gcBefore, gcAfter); err != nil {
					return err
				}
			}
		}

		err := e.Cases.UpdateOne(ctx, bson.M{"_id": parentID}, bson.M{"$set": bson.M{
			"case.reportCount": newCount,
			"case.updatedAt":   now,
		}})
		if err != nil {
			return err
		}
		return e.Audit.Record(ctx, actor, models.ActionMergeCases, "case", parentID.Hex(), parentBefore, parentAfter)
	})
	if err != nil {
		return nil, err
	}
	return &updatedParent, nil
}

// loadMergeable loads a case and checks every per-case merge precondition.
func (e *Engine) loadMergeable(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.Case, error) {
	caseRecord, err := e.Cases.FindOne(ctx, bson.M{"_id": id})
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
		return nil, fmt.Errorf("case %s already merged into %s: %w",
			id.Hex(), caseRecord.Details.ParentID, models.ErrAlreadyMerged)
	}
	if caseRecord.Details.Status == models.StatusClosed {
		return nil, fmt.Errorf("case %s: %w", id.Hex(), models.ErrCaseClosed)
	}
	return caseRecord, nil
}
