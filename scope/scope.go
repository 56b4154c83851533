// Package scope decides what an acting user may see and do. Every rule is a
// pure function of the principal and the target case document; the package
// never touches the database.
package scope

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/openward/ward-feedback-api/models"
)

// Action is a named operation that can be authorized against a role.
type Action string

// Actions
const (
	ActionCreateCase    Action = "create-case"
	ActionRespondToCase Action = "respond-to-case"
	ActionMergeCases    Action = "merge-cases"
	ActionViewAudit     Action = "view-audit"
)

// Resolver answers visibility and authorization questions.
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Visible reports whether the principal may see the given case.
//
// Citizens see cases they filed plus cases attached to their own household.
// Leaders see their neighborhood group, officials their ward, admins all.
func (r *Resolver) Visible(p models.Principal, details models.CaseDetails) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleOfficial:
		return details.WardID == p.ScopeID
	case models.RoleLeader:
		return details.GroupID == p.ScopeID
	case models.RoleCitizen:
		if details.CreatedByUserID != "" && details.CreatedByUserID == p.UserID {
			return true
		}
		return details.HouseholdID != "" && details.HouseholdID == p.ScopeID
	}
	return false
}

// ScopedFilter returns the mongo filter that restricts a case query to the
// principal's visibility. It must stay in lockstep with Visible.
func (r *Resolver) ScopedFilter(p models.Principal) bson.M {
	switch p.Role {
	case models.RoleAdmin:
		return bson.M{}
	case models.RoleOfficial:
		return bson.M{"case.wardID": p.ScopeID}
	case models.RoleLeader:
		return bson.M{"case.groupID": p.ScopeID}
	case models.RoleCitizen:
		return bson.M{"$or": []bson.M{
			{"case.createdByUserID": p.UserID},
			{"case.householdID": p.ScopeID},
		}}
	}
	// Unknown roles match nothing.
	return bson.M{"_id": nil}
}

// Authorize checks whether the principal's role may perform the action at
// all. Scope checks against a concrete case are done separately via Visible.
func (r *Resolver) Authorize(p models.Principal, action Action) error {
	allowed := false
	switch action {
	case ActionCreateCase:
		allowed = p.Role == models.RoleCitizen || p.Role == models.RoleLeader || p.Role == models.RoleAdmin
	case ActionRespondToCase:
		allowed = p.Role == models.RoleOfficial || p.Role == models.RoleAdmin
	case ActionMergeCases:
		allowed = p.Role == models.RoleLeader || p.Role == models.RoleAdmin
	case ActionViewAudit:
		allowed = p.Role == models.RoleAdmin
	}
	if !allowed {
		return fmt.Errorf("role %q may not %s: %w", p.Role, action, models.ErrForbidden)
	}
	return nil
}

// AuthorizeTransition checks whether the principal's role may move a case
// into newStatus. Forwarding to IN_PROGRESS is open to leaders and up;
// resolving and closing are reserved for ward officials and admins.
func (r *Resolver) AuthorizeTransition(p models.Principal, newStatus string) error {
	allowed := false
	switch newStatus {
	case models.StatusInProgress:
		allowed = p.Role == models.RoleLeader || p.Role == models.RoleOfficial || p.Role == models.RoleAdmin
	case models.StatusResolved, models.StatusClosed:
		allowed = p.Role == models.RoleOfficial || p.Role == models.RoleAdmin
	case models.StatusNew:
		// Nothing transitions back into NEW.
		allowed = false
	}
	if !allowed {
		return fmt.Errorf("role %q may not set status %q: %w", p.Role, newStatus, models.ErrForbidden)
	}
	return nil
}

// MissingErr maps a lookup miss to the error the caller should surface.
// Non-admins get ErrForbidden so they cannot probe for existence outside
// their scope; admins see everything, so a miss is a plain ErrNotFound.
func (r *Resolver) MissingErr(p models.Principal) error {
	if p.Role == models.RoleAdmin {
		return models.ErrNotFound
	}
	return models.ErrForbidden
}
