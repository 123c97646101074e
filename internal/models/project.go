package models

import "time"

// Project statuses mirror the portal UI pipeline.
var ProjectStatuses = []string{"Planning", "In Progress", "Review", "On Hold", "Completed"}

const ProjectNameMaxLen = 100

type Project struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:100;not null" json:"name"`
	Description string       `gorm:"not null" json:"description"`
	Status      string       `gorm:"not null;default:'Planning'" json:"status"`
	StartDate   time.Time    `gorm:"not null" json:"startDate"`
	DueDate     time.Time    `gorm:"not null" json:"dueDate"`
	Progress    int          `gorm:"not null;default:0" json:"progress"` // 0..100
	UserID      uint         `gorm:"not null;index" json:"userId"`
	Team        []TeamMember `gorm:"foreignKey:ProjectID" json:"team"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// GetUserID implements policy.Ownable.
func (p *Project) GetUserID() uint { return p.UserID }

// HasMember reports whether userID appears in the project's team set.
// The owner is not implicitly a member; callers check ownership separately.
func (p *Project) HasMember(userID uint) bool {
	for _, m := range p.Team {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// TeamMember links a user to a project with a free-form role label
// (e.g. "designer", "developer").
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index;uniqueIndex:idx_team_project_user" json:"projectId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_team_project_user" json:"userId"`
	Role      string    `gorm:"not null" json:"role"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
