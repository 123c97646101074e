// Package policy holds the per-resource authorization rules for the portal.
// Every policy is a pure decision over (subject, resource snapshot, action):
// handlers load the records, the policies only look at them. That keeps the
// rules testable without a database and uniform across call sites.
package policy

import "github.com/dynexia/portal/internal/gate"

// Resource type names used when registering policies on the gate.
const (
	ResourceProject    = "project"
	ResourceMilestone  = "milestone"
	ResourceDocument   = "document"
	ResourceMessage    = "message"
	ResourceInvoice    = "invoice"
	ResourceOnboarding = "onboarding"
)

// Ownable is implemented by resources that have an owning user.
type Ownable interface {
	GetUserID() uint
}

// NewGate returns a gate with every portal policy registered.
func NewGate() *gate.Gate[gate.Subject] {
	g := gate.NewGate[gate.Subject]()
	g.Register(ResourceProject, ProjectPolicy{})
	g.Register(ResourceMilestone, MilestonePolicy{})
	g.Register(ResourceDocument, DocumentPolicy{})
	g.Register(ResourceMessage, MessagePolicy{})
	g.Register(ResourceInvoice, InvoicePolicy{})
	g.Register(ResourceOnboarding, OnboardingPolicy{})
	return g
}
