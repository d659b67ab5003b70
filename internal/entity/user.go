package entity

import "time"

// User mirrors the identity-provider account. The ID comes from the provider
// and is synced on first request; the receipts counter backs the
// subscription-tier limit check.
type User struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"index" json:"email"`
	Name          string    `json:"name"`
	ReceiptsCount int       `gorm:"not null;default:0" json:"receipts_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EmailForward records one inbound forwarded email, before its attachments
// are ingested as receipts.
type EmailForward struct {
	Base
	FromEmail   string     `gorm:"not null;index" json:"from_email"`
	Subject     string     `json:"subject"`
	Body        string     `gorm:"type:text" json:"body"`
	Attachments StringList `gorm:"type:text" json:"attachments"`
	Processed   bool       `gorm:"not null;default:false" json:"processed"`
}
