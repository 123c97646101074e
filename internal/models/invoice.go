package models

import "time"

var InvoiceStatuses = []string{"Paid", "Unpaid", "Overdue", "Pending"}

type Invoice struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	InvoiceNumber string        `gorm:"unique;not null" json:"invoiceNumber"`
	Amount        float64       `gorm:"not null" json:"amount"` // >= 0
	Status        string        `gorm:"not null;default:'Pending'" json:"status"`
	DueDate       time.Time     `gorm:"not null" json:"dueDate"`
	Notes         string        `json:"notes"`
	Items         []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items"`
	UserID        uint          `gorm:"not null;index" json:"userId"`
	ProjectID     *uint         `gorm:"index" json:"projectId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// GetUserID implements policy.Ownable.
func (i *Invoice) GetUserID() uint { return i.UserID }

type InvoiceItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	InvoiceID   uint    `gorm:"not null;index" json:"invoiceId"`
	Description string  `gorm:"not null" json:"description"`
	Quantity    int     `gorm:"not null" json:"quantity"` // >= 1
	Rate        float64 `gorm:"not null" json:"rate"`     // >= 0
	Amount      float64 `gorm:"not null" json:"amount"`   // >= 0
}
