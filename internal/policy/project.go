package policy

import (
	"context"

	"github.com/dynexia/portal/internal/gate"
	"github.com/dynexia/portal/internal/models"
)

// ProjectPolicy implements the ownership/team rules for projects.
//
// Note the deliberate asymmetry carried over from the portal's original
// behavior: team members may update a project but only the owner may delete
// it or change the team set.
type ProjectPolicy struct{}

func (ProjectPolicy) Can(_ context.Context, s gate.Subject, action gate.Action, resource any) bool {
	switch action {
	case gate.ActionList, gate.ActionCreate:
		// No specific resource yet; any authenticated subject may proceed.
		return true
	}
	p, ok := resource.(*models.Project)
	if !ok || p == nil {
		return false
	}
	owner := p.UserID == s.UserID
	switch action {
	case gate.ActionView, gate.ActionUpdate:
		return owner || p.HasMember(s.UserID)
	case gate.ActionDelete:
		return owner || s.Admin
	case gate.ActionManageTeam:
		return owner
	}
	return false
}

// MilestonePolicy derives milestone access from the owning project: reading a
// milestone follows project view, mutating one follows project update. The
// resource passed in is always the owning *models.Project snapshot.
type MilestonePolicy struct{}

func (MilestonePolicy) Can(ctx context.Context, s gate.Subject, action gate.Action, resource any) bool {
	switch action {
	case gate.ActionView, gate.ActionList:
		return ProjectPolicy{}.Can(ctx, s, gate.ActionView, resource)
	case gate.ActionCreate, gate.ActionUpdate, gate.ActionDelete:
		return ProjectPolicy{}.Can(ctx, s, gate.ActionUpdate, resource)
	}
	return false
}
