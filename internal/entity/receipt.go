package entity

import (
	"time"

	"github.com/receiptvault/receiptvault/constants"
)

// Receipt is one user-submitted expense record.
type Receipt struct {
	Base
	UserID        string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Merchant      string     `gorm:"not null" json:"merchant"`
	Date          time.Time  `gorm:"not null;index" json:"date"`
	Total         float64    `gorm:"not null" json:"total"`
	Tax           float64    `json:"tax"`
	Subtotal      *float64   `json:"subtotal,omitempty"`
	Items         LineItems  `gorm:"type:text" json:"items"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	Tags          StringList `gorm:"type:text" json:"tags"`
	Notes         *string    `json:"notes,omitempty"`
	ImageURL      string     `json:"image_url"`
	ImageKey      string     `json:"image_key"`
	OCRData       JSONBlob   `gorm:"type:text" json:"ocr_data,omitempty"`

	ExtractionStatus constants.ExtractionStatus `gorm:"not null;default:PENDING;index" json:"extraction_status"`

	WarrantyExpiresAt *time.Time `gorm:"index" json:"warranty_expires_at,omitempty"`
	WarrantyItem      *string    `json:"warranty_item,omitempty"`

	CategoryID *string   `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// CategoryName returns the receipt's category name for reporting,
// bucketing uncategorized receipts under the fixed label.
func (r *Receipt) CategoryName() string {
	if r.Category != nil && r.Category.Name != "" {
		return r.Category.Name
	}
	return constants.UncategorizedLabel
}
