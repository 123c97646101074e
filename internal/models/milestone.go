package models

import "time"

var MilestoneStatuses = []string{"Not Started", "In Progress", "Completed"}

const MilestoneNameMaxLen = 100

// Milestone belongs to exactly one project and is removed with it.
type Milestone struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;index" json:"projectId"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `json:"description"`
	Status      string    `gorm:"not null;default:'Not Started'" json:"status"`
	Date        time.Time `gorm:"not null" json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
