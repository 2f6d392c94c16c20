// Package policies holds the pure decision rules the application layer
// consults: they take plain values and return verdicts, never touching
// the filesystem or the workspace map themselves.
package policies

import "compkit/internal/types"

// ReconcileAction is the map synchronizer's verdict for one component
// record.
type ReconcileAction string

const (
	// ReconcileKeep leaves the existing record untouched.
	ReconcileKeep ReconcileAction = "keep"
	// ReconcileAdd creates a record where none exists.
	ReconcileAdd ReconcileAction = "add"
	// ReconcileReplace updates the existing record in place.
	ReconcileReplace ReconcileAction = "replace"
	// ReconcileRemoveThenAdd drops the record and recreates it. Used
	// whenever the shared-directory value changes, because that value
	// affects every recorded relative path and a partial update would
	// leave stale entries behind.
	ReconcileRemoveThenAdd ReconcileAction = "remove-then-add"
)

// OriginPolicy decides how an incoming component layout reconciles
// with its persisted map record across origin transitions.
type OriginPolicy struct{}

func NewOriginPolicy() OriginPolicy {
	return OriginPolicy{}
}

// Reconcile returns the action for a component arriving with the given
// origin and shared dir against the existing record (nil when the
// component is not in the map yet).
func (OriginPolicy) Reconcile(existing *types.IndexRecord, incoming types.ComponentOrigin, incomingSharedDir string) ReconcileAction {
	if existing == nil {
		return ReconcileAdd
	}
	// An authored component is never demoted by an import or a nested
	// resolution of the same identity.
	if existing.Origin == types.OriginAuthored && incoming != types.OriginAuthored {
		return ReconcileKeep
	}
	// A directly imported component outranks a nested re-arrival.
	if existing.Origin == types.OriginImported && incoming == types.OriginNested {
		return ReconcileKeep
	}
	if existing.OriginallySharedDir != incomingSharedDir {
		return ReconcileRemoveThenAdd
	}
	// NESTED promoted to IMPORTED changes the record's layout root, so
	// the stale nested record must go first.
	if existing.Origin == types.OriginNested && incoming == types.OriginImported {
		return ReconcileRemoveThenAdd
	}
	return ReconcileReplace
}
