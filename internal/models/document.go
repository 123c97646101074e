package models

import "time"

const DocumentNameMaxLen = 200

type Document struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:200;not null" json:"name"`
	URL          string    `gorm:"not null" json:"url"`
	ObjectKey    string    `gorm:"not null;index" json:"-"` // blob key, kept for cleanup
	Size         int64     `gorm:"not null" json:"size"`
	MimeType     string    `gorm:"not null" json:"mimeType"`
	Description  string    `json:"description"`
	DocumentType string    `json:"documentType"`
	UserID       uint      `gorm:"not null;index" json:"userId"`
	ProjectID    *uint     `gorm:"index" json:"projectId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// GetUserID implements policy.Ownable.
func (d *Document) GetUserID() uint { return d.UserID }
