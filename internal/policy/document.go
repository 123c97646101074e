package policy

import (
	"context"

	"github.com/dynexia/portal/internal/gate"
	"github.com/dynexia/portal/internal/models"
)

// DocumentResource bundles a document with its project snapshot (nil when the
// document is not attached to a project).
type DocumentResource struct {
	Document *models.Document
	Project  *models.Project
}

// DocumentPolicy implements document access rules.
//
// Read access extends to the attached project's owner and team, but delete
// does not: team membership alone never grants delete. That asymmetry is
// intentional and matched by tests.
type DocumentPolicy struct{}

func (DocumentPolicy) Can(_ context.Context, s gate.Subject, action gate.Action, resource any) bool {
	switch action {
	case gate.ActionList:
		return true
	case gate.ActionCreate:
		// Uploading into a project requires write access to that project;
		// a detached upload is always allowed for the uploader.
		if resource == nil {
			return true
		}
		p, ok := resource.(*models.Project)
		if !ok || p == nil {
			return false
		}
		return p.UserID == s.UserID || p.HasMember(s.UserID)
	}
	res, ok := resource.(DocumentResource)
	if !ok || res.Document == nil {
		return false
	}
	owner := res.Document.UserID == s.UserID
	switch action {
	case gate.ActionView:
		if owner {
			return true
		}
		if res.Project != nil {
			return res.Project.UserID == s.UserID || res.Project.HasMember(s.UserID)
		}
		return false
	case gate.ActionDelete:
		if owner || s.Admin {
			return true
		}
		return res.Project != nil && res.Project.UserID == s.UserID
	}
	return false
}
