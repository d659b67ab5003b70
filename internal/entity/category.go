package entity

// Category is a user-scoped expense bucket. (user_id, name) is unique; the
// seed set is created lazily the first time a user has zero categories.
type Category struct {
	Base
	UserID      string  `gorm:"type:uuid;not null;uniqueIndex:idx_categories_user_name" json:"user_id"`
	Name        string  `gorm:"not null;uniqueIndex:idx_categories_user_name" json:"name"`
	Description *string `json:"description,omitempty"`
	IRSCategory *string `json:"irs_category,omitempty"`
	Color       string  `gorm:"default:#3b82f6" json:"color"`
	IsDefault   bool    `json:"is_default"`
}

// IRSLabel returns the tax label or "" when unset.
func (c *Category) IRSLabel() string {
	if c.IRSCategory == nil {
		return ""
	}
	return *c.IRSCategory
}
