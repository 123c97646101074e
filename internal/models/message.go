package models

import "time"

// Message is either a direct message (ReceiverID set) or a project broadcast
// (ProjectID set); exactly one of the two, enforced at validation time.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"not null" json:"content"`
	Read       bool      `gorm:"not null;default:false" json:"read"`
	SenderID   uint      `gorm:"not null;index" json:"senderId"`
	ReceiverID *uint     `gorm:"index" json:"receiverId,omitempty"`
	ProjectID  *uint     `gorm:"index" json:"projectId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Direct reports whether the message targets a single receiver.
func (m *Message) Direct() bool { return m.ReceiverID != nil }
