package models

import (
	"strings"

	"gorm.io/gorm"
)

// Category groups products and carries the banner and icon shown on the storefront.
type Category struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	BannerURL string    `gorm:"size:512" json:"bannerUrl"`
	IconURL   string    `gorm:"size:512" json:"iconUrl"`
	Products  []Product `gorm:"constraint:OnDelete:CASCADE" json:"products,omitempty"`
}

// BeforeSave trims the category name.
func (c *Category) BeforeSave(tx *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	return nil
}
