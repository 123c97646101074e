package models

import "time"

// Onboarding holds the one-per-user intake questionnaire. Writes use upsert
// semantics keyed by UserID.
type Onboarding struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"unique;not null" json:"userId"`
	CompanyName         string    `gorm:"not null" json:"companyName"`
	Website             string    `json:"website"`
	Industry            string    `gorm:"not null" json:"industry"`
	ProjectType         string    `gorm:"not null" json:"projectType"`
	ProjectGoals        string    `gorm:"not null" json:"projectGoals"`
	InspirationWebsites string    `json:"inspirationWebsites"`
	BrandColors         string    `json:"brandColors"`
	Timeline            string    `json:"timeline"`
	Budget              string    `json:"budget"`
	AdditionalInfo      string    `json:"additionalInfo"`
	Completed           bool      `gorm:"not null;default:false" json:"completed"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// GetUserID implements policy.Ownable.
func (o *Onboarding) GetUserID() uint { return o.UserID }
