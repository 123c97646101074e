package policy

import (
	"context"

	"github.com/dynexia/portal/internal/gate"
	"github.com/dynexia/portal/internal/models"
)

// InvoicePolicy: only admins issue and remove invoices; clients see and
// update (status) the invoices billed to them.
type InvoicePolicy struct{}

func (InvoicePolicy) Can(_ context.Context, s gate.Subject, action gate.Action, resource any) bool {
	switch action {
	case gate.ActionCreate:
		return s.Admin
	case gate.ActionList:
		return true // list is pre-filtered to the visible set
	}
	if s.Admin {
		return true
	}
	inv, ok := resource.(*models.Invoice)
	if !ok || inv == nil {
		return false
	}
	switch action {
	case gate.ActionView, gate.ActionUpdate:
		return inv.UserID == s.UserID
	case gate.ActionDelete:
		return false
	}
	return false
}

// OnboardingPolicy is strictly self-scoped: a subject may only touch their
// own intake record, admins included.
type OnboardingPolicy struct{}

func (OnboardingPolicy) Can(_ context.Context, s gate.Subject, action gate.Action, resource any) bool {
	if resource == nil {
		// Create/read of the subject's own (possibly missing) record.
		return true
	}
	o, ok := resource.(*models.Onboarding)
	if !ok || o == nil {
		return false
	}
	switch action {
	case gate.ActionView, gate.ActionCreate, gate.ActionUpdate:
		return o.UserID == s.UserID
	}
	return false
}
