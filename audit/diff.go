package audit

import (
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/openward/ward-feedback-api/models"
)

// Unset marks a field with no value on one side of a diff, so "absent" is
// distinguishable from an explicit null or empty string.
const Unset = "<unset>"

// identity fields are never part of a diff.
var excludedFields = map[string]bool{
	"_id": true,
	"id":  true,
}

// secretField reports whether a field name looks like credential material.
// Such fields never appear in a diff even if a snapshot carried them.
func secretField(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range []string{"password", "hash", "secret", "token"} {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Diff computes the field-level changes between two ordered snapshots.
// Fields walk in the after document's order, then any fields only present in
// before. A nil before (a creation) yields every after field against Unset.
func Diff(before, after bson.D) []models.FieldChange {
	changes := []models.FieldChange{}

	beforeMap := map[string]interface{}{}
	for _, e := range before {
		beforeMap[e.Key] = e.Value
	}
	afterSeen := map[string]bool{}

	for _, e := range after {
		afterSeen[e.Key] = true
		if excludedFields[e.Key] || secretField(e.Key) {
			continue
		}
		old, ok := beforeMap[e.Key]
		if !ok {
			changes = append(changes, models.FieldChange{Field: e.Key, OldValue: Unset, NewValue: e.Value})
			continue
		}
		if !reflect.DeepEqual(old, e.Value) {
			changes = append(changes, models.FieldChange{Field: e.Key, OldValue: old, NewValue: e.Value})
		}
	}

	// Fields dropped by the mutation.
	for _, e := range before {
		if afterSeen[e.Key] || excludedFields[e.Key] || secretField(e.Key) {
			continue
		}
		changes = append(changes, models.FieldChange{Field: e.Key, OldValue: e.Value, NewValue: Unset})
	}

	return changes
}
