// Package gate provides a Gate/Policy authorization system. The Gate is a
// central registry of policies; each Policy defines authorization rules for a
// specific resource type. This package has no dependencies on domain models.
//
// The package uses generics to allow any subject type:
//   - Gate[uint] for simple user ID based auth
//   - Gate[Subject] for user ID + role based auth
package gate

import "context"

// Gate is the central authorization checkpoint.
// U is the subject type (must be comparable for zero-value check).
// Register policies by resource type name, then call Authorize or Can.
type Gate[U comparable] struct {
	policies map[string]Policy[U]
}

// NewGate creates an empty Gate ready to register policies.
func NewGate[U comparable]() *Gate[U] {
	return &Gate[U]{policies: make(map[string]Policy[U])}
}

// Register adds a policy for a given resource type (e.g., "project").
// Overwrites any existing policy for that type.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize checks authorization and returns an error if denied.
// Returns ErrUnauthenticated for a zero-value subject, ErrForbidden for a
// denied action, and ErrNoPolicyDefined if resourceType has no registered
// policy. The zero-subject and denied cases stay distinct so callers can map
// them to different HTTP statuses.
func (g *Gate[U]) Authorize(ctx context.Context, subject U, action Action, resourceType string, resource any) error {
	var zero U
	if subject == zero {
		return ErrUnauthenticated
	}
	p, ok := g.policies[resourceType]
	if !ok {
		return ErrNoPolicyDefined
	}
	if !p.Can(ctx, subject, action, resource) {
		return ErrForbidden
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate[U]) Can(ctx context.Context, subject U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, subject, action, resourceType, resource) == nil
}
