package policy

import (
	"context"

	"github.com/dynexia/portal/internal/gate"
	"github.com/dynexia/portal/internal/models"
)

// MessageResource bundles a message with the project snapshot for
// project-scoped messages (nil for direct messages).
type MessageResource struct {
	Message *models.Message
	Project *models.Project
}

// MessagePolicy implements message visibility rules. Sending only requires an
// identity; the exactly-one-of(receiver, project) rule is field validation,
// not authorization.
type MessagePolicy struct{}

func (MessagePolicy) Can(_ context.Context, s gate.Subject, action gate.Action, resource any) bool {
	switch action {
	case gate.ActionList, gate.ActionCreate:
		return true
	}
	res, ok := resource.(MessageResource)
	if !ok || res.Message == nil {
		return false
	}
	m := res.Message
	reader := m.SenderID == s.UserID ||
		(m.ReceiverID != nil && *m.ReceiverID == s.UserID) ||
		(res.Project != nil && (res.Project.UserID == s.UserID || res.Project.HasMember(s.UserID)))
	switch action {
	case gate.ActionView:
		return reader
	case gate.ActionUpdate:
		// Marking as read: the receiver for direct messages, any project
		// reader other than the sender for broadcasts.
		if m.ReceiverID != nil {
			return *m.ReceiverID == s.UserID
		}
		return reader && m.SenderID != s.UserID
	}
	return false
}
